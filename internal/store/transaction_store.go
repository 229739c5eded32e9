package store

import (
	"context"
	"time"

	"github.com/lib/pq"
)

const (
	TxActive   = "active"
	TxReversed = "reversed"
	TxReversal = "reversal"
	TxDeleted  = "deleted"
)

type TransactionStore struct {
	db DB
}

type Transaction struct {
	ID                 string     `db:"id"`
	LedgerID           string     `db:"ledger_id"`
	Date               time.Time  `db:"date"`
	Description        string     `db:"description"`
	Amount             int64      `db:"amount"`
	DebitAccountID     string     `db:"debit_account_id"`
	CreditAccountID    string     `db:"credit_account_id"`
	Status             string     `db:"status"`
	ReversalOf         *string    `db:"reversal_of"`
	IsBudgetAllocation bool       `db:"is_budget_allocation"`
	IsCleared          bool       `db:"is_cleared"`
	CreatedAt          time.Time  `db:"created_at"`
	DeletedAt          *time.Time `db:"deleted_at"`
}

type TransactionInput struct {
	ID                 string
	LedgerID           string
	Date               time.Time
	Description        string
	Amount             int64
	DebitAccountID     string
	CreditAccountID    string
	Status             string
	ReversalOf         *string
	IsBudgetAllocation bool
}

type HistoryEntry struct {
	TransactionID  string    `db:"id"`
	Date           time.Time `db:"date"`
	Description    string    `db:"description"`
	Effect         int64     `db:"effect"`
	RunningBalance int64     `db:"running_balance"`
	CreatedAt      time.Time `db:"created_at"`
}

// BudgetRow is the per-category envelope state for one period. Balance is
// cumulative through the period end, so prior = balance - budgeted + activity.
type BudgetRow struct {
	CategoryID string `db:"category_id"`
	Name       string `db:"name"`
	Budgeted   int64  `db:"budgeted"`
	Activity   int64  `db:"activity"`
	Balance    int64  `db:"balance"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Insert(ctx context.Context, tx Execer, input TransactionInput) error {
	status := input.Status
	if status == "" {
		status = TxActive
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, ledger_id, date, description, amount, debit_account_id, credit_account_id, status, reversal_of, is_budget_allocation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, input.ID, input.LedgerID, input.Date, input.Description, input.Amount,
		input.DebitAccountID, input.CreditAccountID, status, input.ReversalOf, input.IsBudgetAllocation)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (Transaction, error) {
	var row Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, ledger_id, date, description, amount, debit_account_id, credit_account_id,
		       status, reversal_of, is_budget_allocation, is_cleared, created_at, deleted_at
		FROM transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) GetForUpdate(ctx context.Context, tx Getter, transactionID string) (Transaction, error) {
	var row Transaction
	err := tx.GetContext(ctx, &row, `
		SELECT id, ledger_id, date, description, amount, debit_account_id, credit_account_id,
		       status, reversal_of, is_budget_allocation, is_cleared, created_at, deleted_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	return row, nil
}

// MarkReversed flips an active transaction to reversed. A zero row count
// means the transaction was already reversed or deleted.
func (s *TransactionStore) MarkReversed(ctx context.Context, tx Execer, transactionID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3
	`, TxReversed, transactionID, TxActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) MarkDeleted(ctx context.Context, tx Execer, transactionID string, deletedAt time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = $1, deleted_at = $2 WHERE id = $3 AND status = $4
	`, TxDeleted, deletedAt, transactionID, TxActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) MarkCleared(ctx context.Context, tx Execer, accountID string, transactionIDs []string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET is_cleared = TRUE
		WHERE id = ANY($1)
		  AND (debit_account_id = $2 OR credit_account_id = $2)
	`, pq.Array(transactionIDs), accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Balance computes the signed account balance from active transactions.
// asset_like accounts increase on debit, liability_like on credit.
func (s *TransactionStore) Balance(ctx context.Context, getter Getter, accountID, internalType string, asOf *time.Time) (int64, error) {
	sign := int64(1)
	if internalType == LiabilityLike {
		sign = -1
	}
	var balance int64
	var err error
	if asOf != nil {
		err = getter.GetContext(ctx, &balance, `
			SELECT COALESCE(SUM(CASE WHEN debit_account_id = $1 THEN amount ELSE -amount END), 0) * $2::bigint
			FROM transactions
			WHERE (debit_account_id = $1 OR credit_account_id = $1)
			  AND status = 'active'
			  AND date <= $3
		`, accountID, sign, *asOf)
	} else {
		err = getter.GetContext(ctx, &balance, `
			SELECT COALESCE(SUM(CASE WHEN debit_account_id = $1 THEN amount ELSE -amount END), 0) * $2::bigint
			FROM transactions
			WHERE (debit_account_id = $1 OR credit_account_id = $1)
			  AND status = 'active'
		`, accountID, sign)
	}
	return balance, err
}

// History returns the most recent postings touching an account with a
// running balance, as a pure restartable query.
func (s *TransactionStore) History(ctx context.Context, accountID, internalType string, limit int) ([]HistoryEntry, error) {
	sign := int64(1)
	if internalType == LiabilityLike {
		sign = -1
	}
	var rows []HistoryEntry
	err := s.db.SelectContext(ctx, &rows, `
		WITH effects AS (
			SELECT id, date, description, created_at,
			       (CASE WHEN debit_account_id = $1 THEN amount ELSE -amount END) * $2::bigint AS effect
			FROM transactions
			WHERE (debit_account_id = $1 OR credit_account_id = $1)
			  AND status = 'active'
		)
		SELECT id, date, description, created_at, effect,
		       SUM(effect) OVER (ORDER BY date, created_at, id) AS running_balance
		FROM effects
		ORDER BY date DESC, created_at DESC, id DESC
		LIMIT $3
	`, accountID, sign, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// BudgetRows aggregates budgeted/activity/balance for every budgetable
// category in one pass. Categories are liability_like equity accounts, so
// budgeted counts allocation credits minus allocation debits, activity
// counts spending debits minus inflow credits, and balance is the
// cumulative envelope carryover through periodEnd.
func (s *TransactionStore) BudgetRows(ctx context.Context, sel Selecter, ledgerID string, periodStart, periodEnd time.Time) ([]BudgetRow, error) {
	var rows []BudgetRow
	err := sel.SelectContext(ctx, &rows, `
		SELECT a.id AS category_id,
		       a.name,
		       COALESCE(SUM(CASE
		           WHEN t.date BETWEEN $2 AND $3 AND t.is_budget_allocation AND t.credit_account_id = a.id THEN t.amount
		           WHEN t.date BETWEEN $2 AND $3 AND t.is_budget_allocation AND t.debit_account_id = a.id THEN -t.amount
		           ELSE 0 END), 0) AS budgeted,
		       COALESCE(SUM(CASE
		           WHEN t.date BETWEEN $2 AND $3 AND NOT t.is_budget_allocation AND t.debit_account_id = a.id THEN t.amount
		           WHEN t.date BETWEEN $2 AND $3 AND NOT t.is_budget_allocation AND t.credit_account_id = a.id THEN -t.amount
		           ELSE 0 END), 0) AS activity,
		       COALESCE(SUM(CASE
		           WHEN t.date <= $3 AND t.credit_account_id = a.id THEN t.amount
		           WHEN t.date <= $3 AND t.debit_account_id = a.id THEN -t.amount
		           ELSE 0 END), 0) AS balance
		FROM accounts a
		LEFT JOIN transactions t
		       ON (t.debit_account_id = a.id OR t.credit_account_id = a.id)
		      AND t.status = 'active'
		WHERE a.ledger_id = $1
		  AND a.type = 'equity'
		  AND a.is_group = FALSE
		  AND a.is_system = FALSE
		  AND a.is_cc_payment = FALSE
		GROUP BY a.id, a.name
		ORDER BY a.name
	`, ledgerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IncomeInPeriod sums non-allocation credits into a category, typically
// the reserved Income category.
func (s *TransactionStore) IncomeInPeriod(ctx context.Context, getter Getter, categoryID string, periodStart, periodEnd time.Time) (int64, error) {
	var income int64
	err := getter.GetContext(ctx, &income, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE credit_account_id = $1
		  AND status = 'active'
		  AND is_budget_allocation = FALSE
		  AND date BETWEEN $2 AND $3
	`, categoryID, periodStart, periodEnd)
	return income, err
}

// CardActivity sums purchases (credits against the card liability) and
// payments (debits) between two dates, exclusive of the start.
func (s *TransactionStore) CardActivity(ctx context.Context, getter Getter, cardAccountID string, afterDate, throughDate time.Time) (purchases, payments int64, err error) {
	var row struct {
		Purchases int64 `db:"purchases"`
		Payments  int64 `db:"payments"`
	}
	err = getter.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(CASE WHEN credit_account_id = $1 THEN amount ELSE 0 END), 0) AS purchases,
		       COALESCE(SUM(CASE WHEN debit_account_id = $1 THEN amount ELSE 0 END), 0) AS payments
		FROM transactions
		WHERE (debit_account_id = $1 OR credit_account_id = $1)
		  AND status = 'active'
		  AND date > $2 AND date <= $3
	`, cardAccountID, afterDate, throughDate)
	return row.Purchases, row.Payments, err
}

// ListByLedger returns the activity view by default; includeAll adds
// reversed, reversal and deleted rows for audit display.
func (s *TransactionStore) ListByLedger(ctx context.Context, ledgerID string, includeAll bool, limit, offset int) ([]Transaction, error) {
	query := `
		SELECT id, ledger_id, date, description, amount, debit_account_id, credit_account_id,
		       status, reversal_of, is_budget_allocation, is_cleared, created_at, deleted_at
		FROM transactions
		WHERE ledger_id = $1
	`
	if !includeAll {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`
	var rows []Transaction
	err := s.db.SelectContext(ctx, &rows, query, ledgerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
