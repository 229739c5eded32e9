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

// GoalService tracks funding targets per category. Goals never move
// money; they only report how far the budget is from the target.
type GoalService struct {
	txRunner db.TxRunner
	reader   store.DB
	ledgers  LedgerStore
	txStore  TransactionStore
	goals    GoalStore
	audit    AuditStore
	budget   *BudgetService
}

func NewGoalService(txRunner db.TxRunner, reader store.DB, ledgers LedgerStore, txStore TransactionStore, goals GoalStore, audit AuditStore, budget *BudgetService) *GoalService {
	return &GoalService{
		txRunner: txRunner,
		reader:   reader,
		ledgers:  ledgers,
		txStore:  txStore,
		goals:    goals,
		audit:    audit,
		budget:   budget,
	}
}

type GoalRequest struct {
	LedgerID     string
	CategoryID   string
	GoalType     string
	TargetAmount int64
	TargetDate   *time.Time
}

func (s *GoalService) SetGoal(ctx context.Context, userID string, req GoalRequest) (string, error) {
	if req.TargetAmount <= 0 {
		return "", ErrInvalidAmount
	}
	switch req.GoalType {
	case store.GoalMonthlyFunding, store.GoalTargetBalance:
	case store.GoalTargetByDate:
		if req.TargetDate == nil {
			return "", ErrMissingField
		}
	default:
		return "", ErrMissingField
	}
	if _, err := s.budget.requireCategory(ctx, userID, req.LedgerID, req.CategoryID); err != nil {
		return "", err
	}
	goalID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.goals.Create(ctx, tx, store.Goal{
			ID:           goalID,
			CategoryID:   req.CategoryID,
			GoalType:     req.GoalType,
			TargetAmount: req.TargetAmount,
			TargetDate:   req.TargetDate,
		}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.LedgerID, userID, "set_goal", "goal", goalID, "", "{}")
	})
	if err != nil {
		return "", err
	}
	return goalID, nil
}

type GoalProgress struct {
	GoalID         string     `json:"goal_id"`
	CategoryID     string     `json:"category_id"`
	CategoryName   string     `json:"category_name"`
	GoalType       string     `json:"goal_type"`
	TargetAmount   int64      `json:"target_amount"`
	TargetDate     *time.Time `json:"target_date,omitempty"`
	Funded         int64      `json:"funded"`
	Needed         int64      `json:"needed"`
	PercentFunded  int        `json:"percent_funded"`
	MonthlyNeeded  int64      `json:"monthly_needed,omitempty"`
	MonthsToTarget int        `json:"months_to_target,omitempty"`
	OnTrack        bool       `json:"on_track"`
}

// Progress reports one category's goal against the given month.
func (s *GoalService) Progress(ctx context.Context, userID, ledgerID, categoryID string, period dates.Month) (GoalProgress, error) {
	if _, err := s.budget.requireCategory(ctx, userID, ledgerID, categoryID); err != nil {
		return GoalProgress{}, err
	}
	goal, err := s.goals.GetActiveByCategory(ctx, categoryID)
	if err != nil {
		return GoalProgress{}, notFound(err, "goal")
	}
	rows, err := s.txStore.BudgetRows(ctx, s.reader, ledgerID, period.Start(), period.End())
	if err != nil {
		return GoalProgress{}, err
	}
	for _, row := range rows {
		if row.CategoryID == categoryID {
			return s.progressFor(goal, row, period), nil
		}
	}
	return GoalProgress{}, notFound(sql.ErrNoRows, "category")
}

// ListProgress reports every active goal in the ledger for the month.
func (s *GoalService) ListProgress(ctx context.Context, userID, ledgerID string, period dates.Month) ([]GoalProgress, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	goals, err := s.goals.ListActiveByLedger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.txStore.BudgetRows(ctx, s.reader, ledgerID, period.Start(), period.End())
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string]store.BudgetRow, len(rows))
	for _, row := range rows {
		byCategory[row.CategoryID] = row
	}
	out := make([]GoalProgress, 0, len(goals))
	for _, goal := range goals {
		row, ok := byCategory[goal.CategoryID]
		if !ok {
			continue
		}
		out = append(out, s.progressFor(goal, row, period))
	}
	return out, nil
}

func (s *GoalService) progressFor(goal store.Goal, row store.BudgetRow, period dates.Month) GoalProgress {
	progress := GoalProgress{
		GoalID:       goal.ID,
		CategoryID:   goal.CategoryID,
		CategoryName: row.Name,
		GoalType:     goal.GoalType,
		TargetAmount: goal.TargetAmount,
		TargetDate:   goal.TargetDate,
	}
	switch goal.GoalType {
	case store.GoalMonthlyFunding:
		// Measured against money assigned this month, not the balance.
		progress.Funded = row.Budgeted
	default:
		progress.Funded = row.Balance
	}
	if progress.Funded < 0 {
		progress.Funded = 0
	}
	progress.Needed = goal.TargetAmount - progress.Funded
	if progress.Needed < 0 {
		progress.Needed = 0
	}
	progress.PercentFunded = percentOf(progress.Funded, goal.TargetAmount)
	progress.OnTrack = progress.Needed == 0

	if goal.GoalType == store.GoalTargetByDate && goal.TargetDate != nil {
		months := dates.MonthsBetween(period.Start(), *goal.TargetDate) + 1
		progress.MonthsToTarget = months
		if progress.Needed > 0 {
			progress.MonthlyNeeded = ceilDiv(progress.Needed, int64(months))
			// On pace when this month's assignment covers the per-month slice.
			progress.OnTrack = row.Budgeted >= progress.MonthlyNeeded
		}
	}
	return progress
}

func percentOf(part, whole int64) int {
	if whole <= 0 {
		return 0
	}
	pct := part * 100 / whole
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
