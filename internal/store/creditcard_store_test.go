package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestCreditCardStoreInsertConfigSupersedes(t *testing.T) {
	ctx := context.Background()
	var queries []string
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			queries = append(queries, query)
			return stubResult{rows: 1}, nil
		},
	}
	store := NewCreditCardStore(stubDB{})
	err := store.InsertConfig(ctx, execer, CreditCardLimit{
		ID:          "cfg-1",
		AccountID:   "card-1",
		CreditLimit: 100000,
		APR:         "0.2499",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected deactivate then insert, got %d queries", len(queries))
	}
	if !strings.Contains(queries[0], "SET is_active = FALSE") {
		t.Fatalf("first query must deactivate prior config: %s", queries[0])
	}
	if !strings.Contains(queries[1], "INSERT INTO credit_card_limits") {
		t.Fatalf("second query must insert: %s", queries[1])
	}
}

func TestCreditCardStoreSettleScheduledPaymentGuard(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "status = $4") {
				t.Fatalf("settle must guard on scheduled status: %s", query)
			}
			if args[0] != PaymentCompleted || args[3] != PaymentScheduled {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewCreditCardStore(stubDB{})
	rows, err := store.SettleScheduledPayment(ctx, execer, "pay-1", 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected zero rows for already-settled payment, got %d", rows)
	}
}

func TestCreditCardStoreGetCurrentStatement(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "is_current = TRUE") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*CreditCardStatement) = CreditCardStatement{ID: "stmt-1", EndingBalance: 25000, IsCurrent: true}
			return nil
		},
	}
	store := NewCreditCardStore(stubDB{})
	statement, err := store.GetCurrentStatement(ctx, getter, "card-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statement.EndingBalance != 25000 {
		t.Fatalf("unexpected statement: %#v", statement)
	}
}

func TestCreditCardStoreListDuePayments(t *testing.T) {
	ctx := context.Background()
	store := NewCreditCardStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "status = 'scheduled'") || !strings.Contains(query, "scheduled_date <= $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]ScheduledPayment) = []ScheduledPayment{{ID: "pay-1", Status: PaymentScheduled}}
			return nil
		},
	})
	payments, err := store.ListDuePayments(ctx, "card-1", testDate(2026, 3, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("unexpected payments: %#v", payments)
	}
}
