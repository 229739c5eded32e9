package services

import (
	"context"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/money"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"
	"github.com/henriquedevops/pgbudget-sub003/internal/websocket"

	"github.com/jmoiron/sqlx"
)

// BudgetService derives envelope state from the ledger and moves money
// between categories. Budget assignments are ordinary double-entry
// transactions flagged as allocations, so the rolling carryover formula
// is the category's account balance by construction.
type BudgetService struct {
	txRunner db.TxRunner
	reader   store.DB
	ledgers  LedgerStore
	accounts AccountStore
	txStore  TransactionStore
	ledger   *LedgerService
	hub      CategoryHub
}

func NewBudgetService(txRunner db.TxRunner, reader store.DB, ledgers LedgerStore, accounts AccountStore, txStore TransactionStore, ledger *LedgerService, hub CategoryHub) *BudgetService {
	return &BudgetService{
		txRunner: txRunner,
		reader:   reader,
		ledgers:  ledgers,
		accounts: accounts,
		txStore:  txStore,
		ledger:   ledger,
		hub:      hub,
	}
}

type CategoryStatus struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Budgeted   int64  `json:"budgeted"`
	Activity   int64  `json:"activity"`
	Balance    int64  `json:"balance"`
}

// BudgetStatus reports budgeted/activity/balance for every budgetable
// category in the period. Balance carries over across periods and may be
// negative (overspent).
func (s *BudgetService) BudgetStatus(ctx context.Context, userID, ledgerID string, period dates.Month) ([]CategoryStatus, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	rows, err := s.txStore.BudgetRows(ctx, s.reader, ledgerID, period.Start(), period.End())
	if err != nil {
		return nil, err
	}
	statuses := make([]CategoryStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, CategoryStatus{
			CategoryID: row.CategoryID,
			Name:       row.Name,
			Budgeted:   row.Budgeted,
			Activity:   row.Activity,
			Balance:    row.Balance,
		})
	}
	return statuses, nil
}

type Totals struct {
	Income       int64 `json:"income"`
	Budgeted     int64 `json:"budgeted"`
	LeftToBudget int64 `json:"left_to_budget"`
	Overspent    int64 `json:"overspent"`
}

// Totals reports the period's funding picture. Overspending is surfaced
// separately, never silently netted into left_to_budget beyond the
// prior-period correction the formula requires.
func (s *BudgetService) Totals(ctx context.Context, userID, ledgerID string, period dates.Month) (Totals, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return Totals{}, notFound(err, "ledger")
	}
	return s.totals(ctx, s.reader, ledgerID, period)
}

func (s *BudgetService) totals(ctx context.Context, q store.DB, ledgerID string, period dates.Month) (Totals, error) {
	income := int64(0)
	for _, name := range []string{store.CategoryIncome, store.CategoryUnassigned} {
		category, err := s.accounts.GetReservedCategory(ctx, q, ledgerID, name)
		if err != nil {
			return Totals{}, notFound(err, "reserved category")
		}
		part, err := s.txStore.IncomeInPeriod(ctx, q, category.ID, period.Start(), period.End())
		if err != nil {
			return Totals{}, err
		}
		income += part
	}

	rows, err := s.txStore.BudgetRows(ctx, q, ledgerID, period.Start(), period.End())
	if err != nil {
		return Totals{}, err
	}
	var budgeted, overspent int64
	for _, row := range rows {
		budgeted += row.Budgeted
		if row.Balance < 0 {
			overspent += -row.Balance
		}
	}

	priorRows, err := s.txStore.BudgetRows(ctx, q, ledgerID, period.Prev().Start(), period.Prev().End())
	if err != nil {
		return Totals{}, err
	}
	var priorOverspent int64
	for _, row := range priorRows {
		if row.Balance < 0 {
			priorOverspent += -row.Balance
		}
	}

	return Totals{
		Income:       income,
		Budgeted:     budgeted,
		LeftToBudget: income - budgeted - priorOverspent,
		Overspent:    overspent,
	}, nil
}

type OverspentCategory struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	OverspentAmount int64  `json:"overspent_amount"`
}

func (s *BudgetService) OverspentCategories(ctx context.Context, userID, ledgerID string, period dates.Month) ([]OverspentCategory, error) {
	statuses, err := s.BudgetStatus(ctx, userID, ledgerID, period)
	if err != nil {
		return nil, err
	}
	overspent := make([]OverspentCategory, 0)
	for _, status := range statuses {
		if status.Balance < 0 {
			overspent = append(overspent, OverspentCategory{
				CategoryID:      status.CategoryID,
				Name:            status.Name,
				OverspentAmount: -status.Balance,
			})
		}
	}
	return overspent, nil
}

type AssignRequest struct {
	LedgerID   string
	CategoryID string
	Amount     int64
	Period     dates.Month
	// AbortIfOverBudget makes an over-budget assignment a dry run: the
	// warning is returned and nothing is posted, so the caller can ask
	// for confirmation and retry without the flag.
	AbortIfOverBudget bool
}

type AssignResult struct {
	TransactionID string `json:"transaction_id,omitempty"`
	OverBudget    bool   `json:"over_budget"`
	Available     int64  `json:"available"`
}

// Assign budgets money into a category from the reserved Income pool.
// Exceeding available-to-budget is a warning, not an error.
func (s *BudgetService) Assign(ctx context.Context, userID string, req AssignRequest) (AssignResult, error) {
	if req.Amount <= 0 {
		return AssignResult{}, ErrInvalidAmount
	}
	category, err := s.requireCategory(ctx, userID, req.LedgerID, req.CategoryID)
	if err != nil {
		return AssignResult{}, err
	}
	var result AssignResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		totals, err := s.totals(ctx, tx, req.LedgerID, req.Period)
		if err != nil {
			return err
		}
		result = AssignResult{Available: totals.LeftToBudget, OverBudget: req.Amount > totals.LeftToBudget}
		if result.OverBudget && req.AbortIfOverBudget {
			return nil
		}
		income, err := s.accounts.GetReservedCategory(ctx, tx, req.LedgerID, store.CategoryIncome)
		if err != nil {
			return notFound(err, "reserved category")
		}
		transactionID, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
			LedgerID:        req.LedgerID,
			DebitAccountID:  income.ID,
			CreditAccountID: req.CategoryID,
			Amount:          req.Amount,
			Date:            assignmentDate(req.Period),
			Description:     "Budget: " + category.Name,
		}, true, nil)
		if err != nil {
			return err
		}
		result.TransactionID = transactionID
		return nil
	})
	if err != nil {
		return AssignResult{}, err
	}
	if result.TransactionID != "" {
		s.broadcastCategories(ctx, userID, req.LedgerID, req.CategoryID)
	}
	return result, nil
}

type MoveRequest struct {
	LedgerID       string
	FromCategoryID string
	ToCategoryID   string
	Amount         int64
	Date           time.Time
}

// MoveMoney shifts budgeted funds between two categories as one
// allocation transaction; it can never be partially applied.
func (s *BudgetService) MoveMoney(ctx context.Context, userID string, req MoveRequest) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	if req.FromCategoryID == req.ToCategoryID {
		return "", ErrSameAccount
	}
	from, err := s.requireCategory(ctx, userID, req.LedgerID, req.FromCategoryID)
	if err != nil {
		return "", err
	}
	to, err := s.requireCategory(ctx, userID, req.LedgerID, req.ToCategoryID)
	if err != nil {
		return "", err
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	transactionID := ""
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
			LedgerID:        req.LedgerID,
			DebitAccountID:  req.FromCategoryID,
			CreditAccountID: req.ToCategoryID,
			Amount:          req.Amount,
			Date:            date,
			Description:     "Move: " + from.Name + " -> " + to.Name,
		}, true, nil)
		transactionID = id
		return err
	})
	if err != nil {
		return "", err
	}
	s.broadcastCategories(ctx, userID, req.LedgerID, req.FromCategoryID, req.ToCategoryID)
	return transactionID, nil
}

// CoverOverspending funds an overspent category from a donor category.
func (s *BudgetService) CoverOverspending(ctx context.Context, userID, ledgerID, categoryID, sourceCategoryID string, amount int64) (string, error) {
	return s.MoveMoney(ctx, userID, MoveRequest{
		LedgerID:       ledgerID,
		FromCategoryID: sourceCategoryID,
		ToCategoryID:   categoryID,
		Amount:         amount,
	})
}

// requireCategory accepts budgetable categories plus CC payment
// categories (funds can be assigned toward a card payoff), and rejects
// groups and the reserved categories.
func (s *BudgetService) requireCategory(ctx context.Context, userID, ledgerID, categoryID string) (store.Account, error) {
	account, err := s.ledger.requireAccount(ctx, userID, ledgerID, categoryID)
	if err != nil {
		return store.Account{}, err
	}
	if account.Type != store.AccountEquity || account.IsGroup || account.IsSystem {
		return store.Account{}, ErrNotCategory
	}
	return account, nil
}

func (s *BudgetService) broadcastCategories(ctx context.Context, userID, ledgerID string, categoryIDs ...string) {
	for _, categoryID := range categoryIDs {
		account, err := s.accounts.GetByID(ctx, categoryID)
		if err != nil {
			continue
		}
		balance, err := s.txStore.Balance(ctx, s.reader, categoryID, account.InternalType, nil)
		if err != nil {
			continue
		}
		s.hub.BroadcastCategory(userID, websocket.CategoryUpdate{
			LedgerID:  ledgerID,
			AccountID: categoryID,
			Name:      account.Name,
			Balance:   money.FormatMinor(balance),
		})
	}
}

// assignmentDate pins allocations to the first of the budgeted month so
// they always fall inside the intended period.
func assignmentDate(period dates.Month) time.Time {
	return period.Start()
}
