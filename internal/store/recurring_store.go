package store

import (
	"context"
	"time"
)

const (
	FlowInflow  = "inflow"
	FlowOutflow = "outflow"
)

type RecurringStore struct {
	db DB
}

type RecurringTransaction struct {
	ID              string     `db:"id"`
	LedgerID        string     `db:"ledger_id"`
	Description     string     `db:"description"`
	Amount          int64      `db:"amount"`
	Frequency       string     `db:"frequency"`
	NextDate        time.Time  `db:"next_date"`
	AnchorDay       int        `db:"anchor_day"`
	EndDate         *time.Time `db:"end_date"`
	AccountID       string     `db:"account_id"`
	CategoryID      string     `db:"category_id"`
	TransactionType string     `db:"transaction_type"`
	AutoCreate      bool       `db:"auto_create"`
	Enabled         bool       `db:"enabled"`
	CreatedAt       time.Time  `db:"created_at"`
}

func NewRecurringStore(db DB) *RecurringStore {
	return &RecurringStore{db: db}
}

func (s *RecurringStore) Create(ctx context.Context, tx Execer, input RecurringTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recurring_transactions (id, ledger_id, description, amount, frequency, next_date, anchor_day, end_date, account_id, category_id, transaction_type, auto_create, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, input.ID, input.LedgerID, input.Description, input.Amount, input.Frequency,
		input.NextDate, input.AnchorDay, input.EndDate, input.AccountID, input.CategoryID,
		input.TransactionType, input.AutoCreate, input.Enabled)
	return err
}

func (s *RecurringStore) GetByID(ctx context.Context, templateID string) (RecurringTransaction, error) {
	var row RecurringTransaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, ledger_id, description, amount, frequency, next_date, anchor_day, end_date,
		       account_id, category_id, transaction_type, auto_create, enabled, created_at
		FROM recurring_transactions
		WHERE id = $1
	`, templateID)
	if err != nil {
		return RecurringTransaction{}, err
	}
	return row, nil
}

func (s *RecurringStore) GetForUpdate(ctx context.Context, tx Getter, templateID string) (RecurringTransaction, error) {
	var row RecurringTransaction
	err := tx.GetContext(ctx, &row, `
		SELECT id, ledger_id, description, amount, frequency, next_date, anchor_day, end_date,
		       account_id, category_id, transaction_type, auto_create, enabled, created_at
		FROM recurring_transactions
		WHERE id = $1
		FOR UPDATE
	`, templateID)
	if err != nil {
		return RecurringTransaction{}, err
	}
	return row, nil
}

func (s *RecurringStore) ListDue(ctx context.Context, ledgerID string, asOf time.Time) ([]RecurringTransaction, error) {
	var rows []RecurringTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, ledger_id, description, amount, frequency, next_date, anchor_day, end_date,
		       account_id, category_id, transaction_type, auto_create, enabled, created_at
		FROM recurring_transactions
		WHERE ledger_id = $1 AND enabled = TRUE AND next_date <= $2
		ORDER BY next_date
	`, ledgerID, asOf)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertOccurrence is the idempotency guard for materialization: the
// primary key on (template_id, due_date) rejects a second posting of the
// same due occurrence.
func (s *RecurringStore) InsertOccurrence(ctx context.Context, tx Execer, templateID string, dueDate time.Time, transactionID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recurring_occurrences (template_id, due_date, transaction_id)
		VALUES ($1, $2, $3)
	`, templateID, dueDate, transactionID)
	return err
}

// AdvanceNextDate is a compare-and-swap on next_date; zero rows means a
// concurrent materialization already advanced it.
func (s *RecurringStore) AdvanceNextDate(ctx context.Context, tx Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE recurring_transactions
		SET next_date = $1, enabled = $2
		WHERE id = $3 AND next_date = $4
	`, to, stillEnabled, templateID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *RecurringStore) SetEnabled(ctx context.Context, tx Execer, templateID string, enabled bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE recurring_transactions SET enabled = $1 WHERE id = $2
	`, enabled, templateID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
