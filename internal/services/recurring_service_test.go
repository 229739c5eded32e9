package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/store"

	"github.com/lib/pq"
)

func newRecurringService(accounts *stubAccountStore, txStore *stubTransactionStore, recurring *stubRecurringStore) *RecurringService {
	ledger := NewLedgerService(fakeTxRunner{}, nil, stubLedgerStore{}, accounts, txStore, stubAuditStore{}, &stubHub{})
	budget := NewBudgetService(fakeTxRunner{}, nil, stubLedgerStore{}, accounts, txStore, ledger, &stubHub{})
	return NewRecurringService(fakeTxRunner{}, stubLedgerStore{}, accounts, recurring, stubAuditStore{}, ledger, budget)
}

func rentTemplate() store.RecurringTransaction {
	return store.RecurringTransaction{
		ID:              "tpl-rent",
		LedgerID:        "ledger-1",
		Description:     "Rent",
		Amount:          120000,
		Frequency:       "monthly",
		NextDate:        time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		AnchorDay:       31,
		AccountID:       "acc-checking",
		CategoryID:      "cat-rent",
		TransactionType: store.FlowOutflow,
		AutoCreate:      true,
		Enabled:         true,
	}
}

func TestCreateTemplateRejectsUnknownFrequency(t *testing.T) {
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, &stubRecurringStore{})
	_, err := svc.CreateTemplate(context.Background(), "user-1", TemplateRequest{
		LedgerID:        "ledger-1",
		Amount:          1000,
		Frequency:       "fortnightly",
		AccountID:       "acc-checking",
		CategoryID:      "cat-rent",
		TransactionType: store.FlowOutflow,
	})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestCreateTemplateAnchorsOnStartDay(t *testing.T) {
	var captured store.RecurringTransaction
	recurring := &stubRecurringStore{
		createFn: func(ctx context.Context, tx store.Execer, input store.RecurringTransaction) error {
			captured = input
			return nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	_, err := svc.CreateTemplate(context.Background(), "user-1", TemplateRequest{
		LedgerID:        "ledger-1",
		Description:     "Rent",
		Amount:          120000,
		Frequency:       "monthly",
		StartDate:       time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		AccountID:       "acc-checking",
		CategoryID:      "cat-rent",
		TransactionType: store.FlowOutflow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.AnchorDay != 31 {
		t.Fatalf("expected anchor day 31, got %d", captured.AnchorDay)
	}
	if !captured.Enabled {
		t.Fatal("new template must start enabled")
	}
	if !captured.NextDate.Equal(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first due date must be the start date, got %s", captured.NextDate)
	}
}

func TestMaterializePostsAndAdvances(t *testing.T) {
	var inserted []store.TransactionInput
	txStore := &stubTransactionStore{
		insertFn: func(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
			inserted = append(inserted, input)
			return nil
		},
	}
	var advancedTo time.Time
	recurring := &stubRecurringStore{
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return rentTemplate(), nil
		},
		advanceNextDateFn: func(ctx context.Context, tx store.Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error) {
			advancedTo = to
			return 1, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), txStore, recurring)
	asOf := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize(context.Background(), "user-1", "ledger-1", "tpl-rent", asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected one posting, got %d", len(inserted))
	}
	if inserted[0].DebitAccountID != "cat-rent" || inserted[0].CreditAccountID != "acc-checking" {
		t.Fatalf("outflow legs wrong: debit %q credit %q", inserted[0].DebitAccountID, inserted[0].CreditAccountID)
	}
	if !inserted[0].Date.Equal(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("posting must carry the due date, got %s", inserted[0].Date)
	}
	// Jan 31 monthly with anchor 31 clamps into February.
	want := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	if !result.NextDate.Equal(want) || !advancedTo.Equal(want) {
		t.Fatalf("expected next date %s, got result %s advanced %s", want, result.NextDate, advancedTo)
	}
	if !result.StillEnabled {
		t.Fatal("open-ended template must stay enabled")
	}
}

func TestMaterializeInflowSwapsLegs(t *testing.T) {
	var captured store.TransactionInput
	txStore := &stubTransactionStore{
		insertFn: func(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
			captured = input
			return nil
		},
	}
	template := rentTemplate()
	template.TransactionType = store.FlowInflow
	template.CategoryID = "cat-income"
	recurring := &stubRecurringStore{
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return template, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), txStore, recurring)
	if _, err := svc.Materialize(context.Background(), "user-1", "ledger-1", "tpl-rent", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.DebitAccountID != "acc-checking" || captured.CreditAccountID != "cat-income" {
		t.Fatalf("inflow legs wrong: debit %q credit %q", captured.DebitAccountID, captured.CreditAccountID)
	}
}

func TestMaterializeDuplicateOccurrence(t *testing.T) {
	recurring := &stubRecurringStore{
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return rentTemplate(), nil
		},
		insertOccurrenceFn: func(ctx context.Context, tx store.Execer, templateID string, dueDate time.Time, transactionID string) error {
			return &pq.Error{Code: "23505"}
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	_, err := svc.Materialize(context.Background(), "user-1", "ledger-1", "tpl-rent", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrAlreadyMaterialized) {
		t.Fatalf("expected ErrAlreadyMaterialized, got %v", err)
	}
}

func TestMaterializeConcurrentAdvance(t *testing.T) {
	recurring := &stubRecurringStore{
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return rentTemplate(), nil
		},
		advanceNextDateFn: func(ctx context.Context, tx store.Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error) {
			return 0, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	_, err := svc.Materialize(context.Background(), "user-1", "ledger-1", "tpl-rent", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestMaterializeDisabledTemplate(t *testing.T) {
	template := rentTemplate()
	template.Enabled = false
	recurring := &stubRecurringStore{
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return template, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	_, err := svc.Materialize(context.Background(), "user-1", "ledger-1", "tpl-rent", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTemplateDisabled) {
		t.Fatalf("expected ErrTemplateDisabled, got %v", err)
	}
}

func TestMaterializeNotDueYet(t *testing.T) {
	recurring := &stubRecurringStore{
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return rentTemplate(), nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	_, err := svc.Materialize(context.Background(), "user-1", "ledger-1", "tpl-rent", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNotDueYet) {
		t.Fatalf("expected ErrNotDueYet, got %v", err)
	}
}

func TestMaterializeDueCatchesUpMissedRuns(t *testing.T) {
	// Two missed months: Jan 31 and Feb 28 are both due by Mar 1.
	template := rentTemplate()
	recurring := &stubRecurringStore{
		listDueFn: func(ctx context.Context, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error) {
			return []store.RecurringTransaction{template}, nil
		},
		getForUpdateFn: func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
			return template, nil
		},
		advanceNextDateFn: func(ctx context.Context, tx store.Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error) {
			template.NextDate = to
			return 1, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	asOf := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	results, err := svc.MaterializeDue(context.Background(), "user-1", "ledger-1", asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 materialized occurrences, got %d", len(results))
	}
	if !results[0].DueDate.Equal(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first due date %s", results[0].DueDate)
	}
	if !results[1].DueDate.Equal(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected second due date %s", results[1].DueDate)
	}
	// The anchor restores the day after the February clamp.
	if !results[1].NextDate.Equal(time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next date %s", results[1].NextDate)
	}
}

func TestMaterializeDueSkipsManualTemplates(t *testing.T) {
	template := rentTemplate()
	template.AutoCreate = false
	posted := false
	txStore := &stubTransactionStore{
		insertFn: func(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
			posted = true
			return nil
		},
	}
	recurring := &stubRecurringStore{
		listDueFn: func(ctx context.Context, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error) {
			return []store.RecurringTransaction{template}, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), txStore, recurring)
	results, err := svc.MaterializeDue(context.Background(), "user-1", "ledger-1", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 || posted {
		t.Fatal("manual templates must not auto-materialize")
	}
}

func TestPreviewStopsAtEndDate(t *testing.T) {
	template := rentTemplate()
	end := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
	template.EndDate = &end
	recurring := &stubRecurringStore{
		getByIDFn: func(ctx context.Context, templateID string) (store.RecurringTransaction, error) {
			return template, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	upcoming, err := svc.Preview(context.Background(), "user-1", "ledger-1", "tpl-rent", 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(upcoming) != 3 {
		t.Fatalf("expected Jan/Feb/Mar dates only, got %d", len(upcoming))
	}
	if !upcoming[2].Equal(end) {
		t.Fatalf("last preview date must be the end date, got %s", upcoming[2])
	}
}

func TestSetEnabledCrossLedger(t *testing.T) {
	template := rentTemplate()
	template.LedgerID = "ledger-2"
	recurring := &stubRecurringStore{
		getByIDFn: func(ctx context.Context, templateID string) (store.RecurringTransaction, error) {
			return template, nil
		},
	}
	svc := newRecurringService(budgetWorld().store(), &stubTransactionStore{}, recurring)
	err := svc.SetEnabled(context.Background(), "user-1", "ledger-1", "tpl-rent", false)
	if !errors.Is(err, ErrCrossLedger) {
		t.Fatalf("expected ErrCrossLedger, got %v", err)
	}
}
