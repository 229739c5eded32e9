package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RecurringService owns scheduled transaction templates and their
// materialization into real postings. Materializing the same occurrence
// twice yields one transaction: the occurrence table's primary key and
// a compare-and-swap on next_date both refuse the duplicate.
type RecurringService struct {
	txRunner  db.TxRunner
	ledgers   LedgerStore
	accounts  AccountStore
	recurring RecurringStore
	audit     AuditStore
	ledger    *LedgerService
	budget    *BudgetService
}

func NewRecurringService(txRunner db.TxRunner, ledgers LedgerStore, accounts AccountStore, recurring RecurringStore, audit AuditStore, ledger *LedgerService, budget *BudgetService) *RecurringService {
	return &RecurringService{
		txRunner:  txRunner,
		ledgers:   ledgers,
		accounts:  accounts,
		recurring: recurring,
		audit:     audit,
		ledger:    ledger,
		budget:    budget,
	}
}

type TemplateRequest struct {
	LedgerID        string
	Description     string
	Amount          int64
	Frequency       string
	StartDate       time.Time
	EndDate         *time.Time
	AccountID       string
	CategoryID      string
	TransactionType string
	AutoCreate      bool
}

func (s *RecurringService) CreateTemplate(ctx context.Context, userID string, req TemplateRequest) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	if req.TransactionType != store.FlowInflow && req.TransactionType != store.FlowOutflow {
		return "", ErrMissingField
	}
	frequency, err := dates.ParseFrequency(req.Frequency)
	if err != nil {
		return "", ErrMissingField
	}
	account, err := s.ledger.requireAccount(ctx, userID, req.LedgerID, req.AccountID)
	if err != nil {
		return "", err
	}
	if account.Type != store.AccountAsset && account.Type != store.AccountLiability {
		return "", ErrNotPostable
	}
	if _, err := s.budget.requireCategory(ctx, userID, req.LedgerID, req.CategoryID); err != nil {
		return "", err
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return "", ErrMissingField
	}
	templateID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.recurring.Create(ctx, tx, store.RecurringTransaction{
			ID:              templateID,
			LedgerID:        req.LedgerID,
			Description:     req.Description,
			Amount:          req.Amount,
			Frequency:       string(frequency),
			NextDate:        req.StartDate,
			AnchorDay:       req.StartDate.Day(),
			EndDate:         req.EndDate,
			AccountID:       req.AccountID,
			CategoryID:      req.CategoryID,
			TransactionType: req.TransactionType,
			AutoCreate:      req.AutoCreate,
			Enabled:         true,
		}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.LedgerID, userID, "create", "recurring_template", templateID, "", "{}")
	})
	if err != nil {
		return "", err
	}
	return templateID, nil
}

type MaterializeResult struct {
	TransactionID string    `json:"transaction_id"`
	DueDate       time.Time `json:"due_date"`
	NextDate      time.Time `json:"next_date"`
	StillEnabled  bool      `json:"still_enabled"`
}

// Materialize posts the template's next due occurrence. The template
// row is locked for the duration; a concurrent materialization of the
// same occurrence fails on the occurrence key or the next_date swap.
func (s *RecurringService) Materialize(ctx context.Context, userID, ledgerID, templateID string, asOf time.Time) (MaterializeResult, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return MaterializeResult{}, notFound(err, "ledger")
	}
	var result MaterializeResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.materializeInTx(ctx, tx, userID, ledgerID, templateID, asOf)
		return err
	})
	if err != nil {
		return MaterializeResult{}, err
	}
	return result, nil
}

func (s *RecurringService) materializeInTx(ctx context.Context, tx *sqlx.Tx, userID, ledgerID, templateID string, asOf time.Time) (MaterializeResult, error) {
	template, err := s.recurring.GetForUpdate(ctx, tx, templateID)
	if err != nil {
		return MaterializeResult{}, notFound(err, "recurring template")
	}
	if template.LedgerID != ledgerID {
		return MaterializeResult{}, ErrCrossLedger
	}
	if !template.Enabled {
		return MaterializeResult{}, ErrTemplateDisabled
	}
	dueDate := template.NextDate
	if dueDate.After(asOf) {
		return MaterializeResult{}, ErrNotDueYet
	}

	debitID, creditID := template.CategoryID, template.AccountID
	if template.TransactionType == store.FlowInflow {
		debitID, creditID = template.AccountID, template.CategoryID
	}
	transactionID, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
		LedgerID:        ledgerID,
		DebitAccountID:  debitID,
		CreditAccountID: creditID,
		Amount:          template.Amount,
		Date:            dueDate,
		Description:     template.Description,
	}, false, nil)
	if err != nil {
		return MaterializeResult{}, err
	}
	if err := s.recurring.InsertOccurrence(ctx, tx, templateID, dueDate, transactionID); err != nil {
		if db.IsUniqueViolation(err) {
			return MaterializeResult{}, ErrAlreadyMaterialized
		}
		return MaterializeResult{}, err
	}

	nextDate := dates.Advance(dueDate, dates.Frequency(template.Frequency), template.AnchorDay)
	stillEnabled := template.EndDate == nil || !nextDate.After(*template.EndDate)
	rows, err := s.recurring.AdvanceNextDate(ctx, tx, templateID, dueDate, nextDate, stillEnabled)
	if err != nil {
		return MaterializeResult{}, err
	}
	if rows == 0 {
		return MaterializeResult{}, ErrConcurrentModification
	}
	if err := s.audit.Log(ctx, tx, ledgerID, userID, "materialize", "recurring_template", templateID, "", "{}"); err != nil {
		return MaterializeResult{}, err
	}
	return MaterializeResult{
		TransactionID: transactionID,
		DueDate:       dueDate,
		NextDate:      nextDate,
		StillEnabled:  stillEnabled,
	}, nil
}

// MaterializeDue posts every enabled auto-create template whose next
// date has arrived. Each template runs in its own transaction so one
// failure does not roll back the rest.
func (s *RecurringService) MaterializeDue(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]MaterializeResult, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	due, err := s.recurring.ListDue(ctx, ledgerID, asOf)
	if err != nil {
		return nil, err
	}
	var results []MaterializeResult
	for _, template := range due {
		if !template.AutoCreate {
			continue
		}
		// A template can be due more than once when runs were missed.
		templateID := template.ID
		for {
			var result MaterializeResult
			err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
				var err error
				result, err = s.materializeInTx(ctx, tx, userID, ledgerID, templateID, asOf)
				return err
			})
			if err != nil {
				if IsConflict(err) || IsValidation(err) {
					break
				}
				return results, err
			}
			results = append(results, result)
			if !result.StillEnabled || result.NextDate.After(asOf) {
				break
			}
		}
	}
	return results, nil
}

func (s *RecurringService) ListDue(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	return s.recurring.ListDue(ctx, ledgerID, asOf)
}

func (s *RecurringService) SetEnabled(ctx context.Context, userID, ledgerID, templateID string, enabled bool) error {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return notFound(err, "ledger")
	}
	template, err := s.recurring.GetByID(ctx, templateID)
	if err != nil {
		return notFound(err, "recurring template")
	}
	if template.LedgerID != ledgerID {
		return ErrCrossLedger
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.recurring.SetEnabled(ctx, tx, templateID, enabled)
		if err != nil {
			return err
		}
		if rows == 0 {
			return notFound(sql.ErrNoRows, "recurring template")
		}
		return nil
	})
}

// Preview projects the next few due dates without touching the ledger.
func (s *RecurringService) Preview(ctx context.Context, userID, ledgerID, templateID string, count int) ([]time.Time, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	template, err := s.recurring.GetByID(ctx, templateID)
	if err != nil {
		return nil, notFound(err, "recurring template")
	}
	if template.LedgerID != ledgerID {
		return nil, ErrCrossLedger
	}
	if count <= 0 || count > 36 {
		count = 6
	}
	var out []time.Time
	next := template.NextDate
	for i := 0; i < count; i++ {
		if template.EndDate != nil && next.After(*template.EndDate) {
			break
		}
		out = append(out, next)
		next = dates.Advance(next, dates.Frequency(template.Frequency), template.AnchorDay)
	}
	return out, nil
}
