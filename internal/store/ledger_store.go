package store

import (
	"context"
	"time"
)

type LedgerStore struct {
	db DB
}

type Ledger struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Create(ctx context.Context, tx Execer, id, userID, name, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledgers (id, user_id, name, description)
		VALUES ($1, $2, $3, $4)
	`, id, userID, name, description)
	return err
}

func (s *LedgerStore) Rename(ctx context.Context, tx Execer, id, name, description string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE ledgers SET name = $1, description = $2 WHERE id = $3
	`, name, description, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *LedgerStore) GetForUser(ctx context.Context, ledgerID, userID string) (Ledger, error) {
	var row Ledger
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, description, created_at
		FROM ledgers
		WHERE id = $1 AND user_id = $2
	`, ledgerID, userID)
	if err != nil {
		return Ledger{}, err
	}
	return row, nil
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string) ([]Ledger, error) {
	var rows []Ledger
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, description, created_at
		FROM ledgers
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete cascades through accounts and transactions via foreign keys.
func (s *LedgerStore) Delete(ctx context.Context, tx Execer, ledgerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM ledgers WHERE id = $1`, ledgerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
