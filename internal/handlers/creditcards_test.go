package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/services"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"
)

func TestCardPurchaseTakesCardFromURL(t *testing.T) {
	var captured services.PurchaseRequest
	h := newTestHandler(testDeps{
		cards: stubCardService{
			postPurchaseFn: func(ctx context.Context, userID string, req services.PurchaseRequest) (string, error) {
				captured = req
				return "tx-5", nil
			},
		},
	})

	body := `{"category_id":"cat-groceries","amount":"45.99","date":"2026-03-10","description":"market"}`
	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/cards/acc-visa/purchases", strings.NewReader(body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CardAccountID != "acc-visa" {
		t.Fatalf("card account not taken from URL, got %q", captured.CardAccountID)
	}
	if captured.LedgerID != "ledger-1" || captured.CategoryID != "cat-groceries" {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured.Amount != 4599 {
		t.Fatalf("expected amount 4599, got %d", captured.Amount)
	}
}

func TestCardPurchaseNotCardMaps400(t *testing.T) {
	h := newTestHandler(testDeps{
		cards: stubCardService{
			postPurchaseFn: func(ctx context.Context, userID string, req services.PurchaseRequest) (string, error) {
				return "", services.ErrNotCreditCard
			},
		},
	})

	body := `{"category_id":"cat-groceries","amount":"45.99"}`
	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/cards/acc-checking/purchases", strings.NewReader(body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestConfigureCardBadPercentMaps400(t *testing.T) {
	h := newTestHandler(testDeps{
		cards: stubCardService{
			configureFn: func(ctx context.Context, userID string, req services.CardConfigRequest) (string, error) {
				return "", services.ErrInvalidPercent
			},
		},
	})

	body := `{"credit_limit":"1000.00","apr":"0.24","warning_threshold_percent":150}`
	rr := serveAuthed(t, h, http.MethodPut, "/ledgers/ledger-1/cards/acc-visa/config", strings.NewReader(body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGenerateStatementCreated(t *testing.T) {
	var gotAsOf time.Time
	h := newTestHandler(testDeps{
		cards: stubCardService{
			generateStatementFn: func(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) (store.CreditCardStatement, error) {
				gotAsOf = asOf
				return store.CreditCardStatement{AccountID: accountID}, nil
			},
		},
	})

	body := `{"as_of":"2026-03-31"}`
	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/cards/acc-visa/statements", strings.NewReader(body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotAsOf.Format("2006-01-02") != "2026-03-31" {
		t.Fatalf("unexpected as_of %s", gotAsOf)
	}
}

func TestExecuteScheduledPaymentReturnsPaidAmount(t *testing.T) {
	h := newTestHandler(testDeps{
		cards: stubCardService{
			executeScheduledPaymentFn: func(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string, asOf time.Time) (int64, error) {
				if paymentID != "pay-1" {
					t.Fatalf("unexpected payment id %q", paymentID)
				}
				return 5000, nil
			},
		},
	})

	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/cards/acc-visa/scheduled-payments/pay-1/execute", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		PaidMinor int64 `json:"paid_minor"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PaidMinor != 5000 {
		t.Fatalf("expected paid 5000, got %d", resp.PaidMinor)
	}
}

func TestExecuteSettledPaymentConflicts(t *testing.T) {
	h := newTestHandler(testDeps{
		cards: stubCardService{
			executeScheduledPaymentFn: func(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string, asOf time.Time) (int64, error) {
				return 0, services.ErrPaymentNotPending
			},
		},
	})

	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/cards/acc-visa/scheduled-payments/pay-1/execute", nil)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}
