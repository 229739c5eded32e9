package store

import (
	"context"
	"time"
)

type AuditStore struct {
	db DB
}

type ActionRecord struct {
	ID          string    `db:"id"`
	LedgerID    string    `db:"ledger_id"`
	ActorUserID *string   `db:"actor_user_id"`
	ActionType  string    `db:"action_type"`
	EntityType  string    `db:"entity_type"`
	EntityID    string    `db:"entity_id"`
	OldData     string    `db:"old_data"`
	NewData     string    `db:"new_data"`
	CreatedAt   time.Time `db:"created_at"`
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error {
	if oldData == "" {
		oldData = "{}"
	}
	if newData == "" {
		newData = "{}"
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO action_history (id, ledger_id, actor_user_id, action_type, entity_type, entity_id, old_data, new_data)
		VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5, $6, $7)
	`, ledgerID, actorID, actionType, entityType, entityID, oldData, newData)
	return err
}

func (s *AuditStore) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]ActionRecord, error) {
	var rows []ActionRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, ledger_id, actor_user_id, action_type, entity_type, entity_id, old_data, new_data, created_at
		FROM action_history
		WHERE ledger_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ledgerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PurgeOlderThan enforces the audit retention window.
func (s *AuditStore) PurgeOlderThan(ctx context.Context, tx Execer, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM action_history WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
