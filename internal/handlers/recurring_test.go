package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/services"
)

func TestCreateTemplateForwardsSchedule(t *testing.T) {
	var captured services.TemplateRequest
	h := newTestHandler(testDeps{
		recurring: stubRecurringService{
			createTemplateFn: func(ctx context.Context, userID string, req services.TemplateRequest) (string, error) {
				captured = req
				return "tpl-3", nil
			},
		},
	})

	body := `{"description":"Rent","amount":"1200.00","frequency":"monthly","start_date":"2026-01-31","account_id":"acc-checking","category_id":"cat-rent","transaction_type":"outflow","auto_create":true}`
	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/recurring", strings.NewReader(body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Frequency != "monthly" || captured.Amount != 120000 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured.StartDate.Format("2006-01-02") != "2026-01-31" {
		t.Fatalf("unexpected start date %s", captured.StartDate)
	}
	if captured.EndDate != nil {
		t.Fatal("expected open-ended template")
	}
	if !captured.AutoCreate {
		t.Fatal("expected auto_create to be forwarded")
	}
}

func TestMaterializeDuplicateConflicts(t *testing.T) {
	h := newTestHandler(testDeps{
		recurring: stubRecurringService{
			materializeFn: func(ctx context.Context, userID, ledgerID, templateID string, asOf time.Time) (services.MaterializeResult, error) {
				return services.MaterializeResult{}, services.ErrAlreadyMaterialized
			},
		},
	})

	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/recurring/tpl-1/materialize", nil)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestMaterializeNotDueMaps400(t *testing.T) {
	h := newTestHandler(testDeps{
		recurring: stubRecurringService{
			materializeFn: func(ctx context.Context, userID, ledgerID, templateID string, asOf time.Time) (services.MaterializeResult, error) {
				return services.MaterializeResult{}, services.ErrNotDueYet
			},
		},
	})

	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/recurring/tpl-1/materialize", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSetTemplateEnabled(t *testing.T) {
	var gotTemplateID string
	var gotEnabled bool
	h := newTestHandler(testDeps{
		recurring: stubRecurringService{
			setEnabledFn: func(ctx context.Context, userID, ledgerID, templateID string, enabled bool) error {
				gotTemplateID = templateID
				gotEnabled = enabled
				return nil
			},
		},
	})

	rr := serveAuthed(t, h, http.MethodPut, "/ledgers/ledger-1/recurring/tpl-1/enabled", strings.NewReader(`{"enabled":false}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotTemplateID != "tpl-1" || gotEnabled {
		t.Fatalf("unexpected call %s/%v", gotTemplateID, gotEnabled)
	}
}
