package store

import (
	"context"
	"time"
)

const (
	AccountAsset     = "asset"
	AccountLiability = "liability"
	AccountEquity    = "equity"
	AccountRevenue   = "revenue"
	AccountExpense   = "expense"

	AssetLike     = "asset_like"
	LiabilityLike = "liability_like"
)

// Reserved category names, created once per ledger and never deleted.
const (
	CategoryIncome     = "Income"
	CategoryUnassigned = "Unassigned"
	CategoryOffBudget  = "Off-budget"
)

type AccountStore struct {
	db DB
}

type Account struct {
	ID              string    `db:"id"`
	LedgerID        string    `db:"ledger_id"`
	Name            string    `db:"name"`
	Type            string    `db:"type"`
	InternalType    string    `db:"internal_type"`
	IsGroup         bool      `db:"is_group"`
	ParentGroupID   *string   `db:"parent_group_id"`
	IsSystem        bool      `db:"is_system"`
	IsCCPayment     bool      `db:"is_cc_payment"`
	LinkedAccountID *string   `db:"linked_account_id"`
	CreatedAt       time.Time `db:"created_at"`
}

type AccountInput struct {
	ID              string
	LedgerID        string
	Name            string
	Type            string
	InternalType    string
	IsGroup         bool
	ParentGroupID   *string
	IsSystem        bool
	IsCCPayment     bool
	LinkedAccountID *string
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, input AccountInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, ledger_id, name, type, internal_type, is_group, parent_group_id, is_system, is_cc_payment, linked_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, input.ID, input.LedgerID, input.Name, input.Type, input.InternalType,
		input.IsGroup, input.ParentGroupID, input.IsSystem, input.IsCCPayment, input.LinkedAccountID)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, ledger_id, name, type, internal_type, is_group, parent_group_id,
		       is_system, is_cc_payment, linked_account_id, created_at
		FROM accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, ledger_id, name, type, internal_type, is_group, parent_group_id,
		       is_system, is_cc_payment, linked_account_id, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) ListByLedger(ctx context.Context, ledgerID string) ([]Account, error) {
	var rows []Account
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, ledger_id, name, type, internal_type, is_group, parent_group_id,
		       is_system, is_cc_payment, linked_account_id, created_at
		FROM accounts
		WHERE ledger_id = $1
		ORDER BY name
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetReservedCategory resolves one of the three system categories by name.
func (s *AccountStore) GetReservedCategory(ctx context.Context, getter Getter, ledgerID, name string) (Account, error) {
	var row Account
	err := getter.GetContext(ctx, &row, `
		SELECT id, ledger_id, name, type, internal_type, is_group, parent_group_id,
		       is_system, is_cc_payment, linked_account_id, created_at
		FROM accounts
		WHERE ledger_id = $1 AND name = $2 AND is_system = TRUE
	`, ledgerID, name)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// GetCCPaymentCategory resolves the payment category paired with a card
// liability account.
func (s *AccountStore) GetCCPaymentCategory(ctx context.Context, getter Getter, cardAccountID string) (Account, error) {
	var row Account
	err := getter.GetContext(ctx, &row, `
		SELECT id, ledger_id, name, type, internal_type, is_group, parent_group_id,
		       is_system, is_cc_payment, linked_account_id, created_at
		FROM accounts
		WHERE linked_account_id = $1 AND is_cc_payment = TRUE
	`, cardAccountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) HasPostings(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE debit_account_id = $1 OR credit_account_id = $1
		)
	`, accountID)
	return exists, err
}

func (s *AccountStore) Delete(ctx context.Context, tx Execer, accountID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) SetParentGroup(ctx context.Context, tx Execer, accountID string, groupID *string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET parent_group_id = $1 WHERE id = $2 AND is_group = FALSE
	`, groupID, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
