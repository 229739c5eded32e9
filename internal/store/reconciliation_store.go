package store

import (
	"context"
	"time"
)

type ReconciliationStore struct {
	db DB
}

type Reconciliation struct {
	ID                      string    `db:"id"`
	AccountID               string    `db:"account_id"`
	StatementDate           time.Time `db:"statement_date"`
	StatementBalance        int64     `db:"statement_balance"`
	LedgerBalance           int64     `db:"ledger_balance"`
	Difference              int64     `db:"difference"`
	AdjustmentTransactionID *string   `db:"adjustment_transaction_id"`
	CreatedAt               time.Time `db:"created_at"`
}

func NewReconciliationStore(db DB) *ReconciliationStore {
	return &ReconciliationStore{db: db}
}

func (s *ReconciliationStore) Insert(ctx context.Context, tx Execer, input Reconciliation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reconciliations (id, account_id, statement_date, statement_balance, ledger_balance, difference, adjustment_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, input.ID, input.AccountID, input.StatementDate, input.StatementBalance,
		input.LedgerBalance, input.Difference, input.AdjustmentTransactionID)
	return err
}

func (s *ReconciliationStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]Reconciliation, error) {
	var rows []Reconciliation
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, statement_date, statement_balance, ledger_balance, difference, adjustment_transaction_id, created_at
		FROM reconciliations
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
