package store

import (
	"context"
	"time"
)

const (
	GoalMonthlyFunding = "monthly_funding"
	GoalTargetBalance  = "target_balance"
	GoalTargetByDate   = "target_by_date"
)

type GoalStore struct {
	db DB
}

type Goal struct {
	ID           string     `db:"id"`
	CategoryID   string     `db:"category_id"`
	GoalType     string     `db:"goal_type"`
	TargetAmount int64      `db:"target_amount"`
	TargetDate   *time.Time `db:"target_date"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
}

func NewGoalStore(db DB) *GoalStore {
	return &GoalStore{db: db}
}

// Create replaces the category's active goal: the prior row is
// deactivated, never deleted.
func (s *GoalStore) Create(ctx context.Context, tx Execer, input Goal) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE goals SET is_active = FALSE
		WHERE category_id = $1 AND is_active = TRUE
	`, input.CategoryID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO goals (id, category_id, goal_type, target_amount, target_date, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, input.ID, input.CategoryID, input.GoalType, input.TargetAmount, input.TargetDate)
	return err
}

func (s *GoalStore) GetActiveByCategory(ctx context.Context, categoryID string) (Goal, error) {
	var row Goal
	err := s.db.GetContext(ctx, &row, `
		SELECT id, category_id, goal_type, target_amount, target_date, is_active, created_at
		FROM goals
		WHERE category_id = $1 AND is_active = TRUE
	`, categoryID)
	if err != nil {
		return Goal{}, err
	}
	return row, nil
}

func (s *GoalStore) ListActiveByLedger(ctx context.Context, ledgerID string) ([]Goal, error) {
	var rows []Goal
	err := s.db.SelectContext(ctx, &rows, `
		SELECT g.id, g.category_id, g.goal_type, g.target_amount, g.target_date, g.is_active, g.created_at
		FROM goals g
		JOIN accounts a ON a.id = g.category_id
		WHERE a.ledger_id = $1 AND g.is_active = TRUE
		ORDER BY g.created_at
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
