package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/money"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"
	"github.com/henriquedevops/pgbudget-sub003/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LedgerService owns the double-entry core: ledgers, accounts and
// postings. Every mutation runs in one storage transaction together with
// its audit row.
type LedgerService struct {
	txRunner db.TxRunner
	reader   store.Getter
	ledgers  LedgerStore
	accounts AccountStore
	txStore  TransactionStore
	audit    AuditStore
	hub      CategoryHub
}

func NewLedgerService(txRunner db.TxRunner, reader store.Getter, ledgers LedgerStore, accounts AccountStore, txStore TransactionStore, audit AuditStore, hub CategoryHub) *LedgerService {
	return &LedgerService{
		txRunner: txRunner,
		reader:   reader,
		ledgers:  ledgers,
		accounts: accounts,
		txStore:  txStore,
		audit:    audit,
		hub:      hub,
	}
}

func (s *LedgerService) CreateLedger(ctx context.Context, userID, name, description string) (string, error) {
	if name == "" {
		return "", ErrMissingField
	}
	ledgerID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.ledgers.Create(ctx, tx, ledgerID, userID, name, description); err != nil {
			return err
		}
		for _, reserved := range []string{store.CategoryIncome, store.CategoryUnassigned, store.CategoryOffBudget} {
			if err := s.accounts.Create(ctx, tx, store.AccountInput{
				ID:           uuid.NewString(),
				LedgerID:     ledgerID,
				Name:         reserved,
				Type:         store.AccountEquity,
				InternalType: store.LiabilityLike,
				IsSystem:     true,
			}); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]string{"name": name})
		return s.audit.Log(ctx, tx, ledgerID, userID, "create", "ledger", ledgerID, "", string(data))
	})
	if err != nil {
		return "", err
	}
	return ledgerID, nil
}

func (s *LedgerService) RenameLedger(ctx context.Context, userID, ledgerID, name, description string) error {
	if name == "" {
		return ErrMissingField
	}
	ledger, err := s.ledgers.GetForUser(ctx, ledgerID, userID)
	if err != nil {
		return notFound(err, "ledger")
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.ledgers.Rename(ctx, tx, ledgerID, name, description)
		if err != nil {
			return err
		}
		if rows == 0 {
			return notFound(sql.ErrNoRows, "ledger")
		}
		oldData, _ := json.Marshal(map[string]string{"name": ledger.Name, "description": ledger.Description})
		newData, _ := json.Marshal(map[string]string{"name": name, "description": description})
		return s.audit.Log(ctx, tx, ledgerID, userID, "update", "ledger", ledgerID, string(oldData), string(newData))
	})
}

func (s *LedgerService) ListLedgers(ctx context.Context, userID string) ([]store.Ledger, error) {
	return s.ledgers.ListByUser(ctx, userID)
}

// DeleteLedger is the one destructive path: an explicit cascade through
// accounts and transactions.
func (s *LedgerService) DeleteLedger(ctx context.Context, userID, ledgerID string) error {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return notFound(err, "ledger")
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.ledgers.Delete(ctx, tx, ledgerID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return notFound(sql.ErrNoRows, "ledger")
		}
		return nil
	})
}

type AccountRequest struct {
	LedgerID      string
	Name          string
	Type          string
	IsGroup       bool
	IsCreditCard  bool
	ParentGroupID *string
}

type CreatedAccount struct {
	AccountID         string
	PaymentCategoryID string
}

// CreateAccount creates an account; a credit-card liability additionally
// gets its paired payment category in the same commit.
func (s *LedgerService) CreateAccount(ctx context.Context, userID string, req AccountRequest) (CreatedAccount, error) {
	if req.Name == "" || req.LedgerID == "" {
		return CreatedAccount{}, ErrMissingField
	}
	internalType, ok := internalTypeFor(req.Type)
	if !ok {
		return CreatedAccount{}, ErrMissingField
	}
	if req.IsCreditCard && req.Type != store.AccountLiability {
		return CreatedAccount{}, ErrNotCreditCard
	}
	if _, err := s.ledgers.GetForUser(ctx, req.LedgerID, userID); err != nil {
		return CreatedAccount{}, notFound(err, "ledger")
	}
	if req.ParentGroupID != nil {
		group, err := s.accounts.GetByID(ctx, *req.ParentGroupID)
		if err != nil {
			return CreatedAccount{}, notFound(err, "category group")
		}
		if group.LedgerID != req.LedgerID {
			return CreatedAccount{}, ErrCrossLedger
		}
		if !group.IsGroup {
			return CreatedAccount{}, ErrNotCategory
		}
	}
	created := CreatedAccount{AccountID: uuid.NewString()}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, store.AccountInput{
			ID:            created.AccountID,
			LedgerID:      req.LedgerID,
			Name:          req.Name,
			Type:          req.Type,
			InternalType:  internalType,
			IsGroup:       req.IsGroup,
			ParentGroupID: req.ParentGroupID,
		}); err != nil {
			return err
		}
		if req.IsCreditCard {
			created.PaymentCategoryID = uuid.NewString()
			if err := s.accounts.Create(ctx, tx, store.AccountInput{
				ID:              created.PaymentCategoryID,
				LedgerID:        req.LedgerID,
				Name:            "CC Payment: " + req.Name,
				Type:            store.AccountEquity,
				InternalType:    store.LiabilityLike,
				IsCCPayment:     true,
				LinkedAccountID: &created.AccountID,
			}); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]any{"name": req.Name, "type": req.Type, "is_credit_card": req.IsCreditCard})
		return s.audit.Log(ctx, tx, req.LedgerID, userID, "create", "account", created.AccountID, "", string(data))
	})
	if err != nil {
		return CreatedAccount{}, err
	}
	return created, nil
}

// DeleteAccount rejects accounts with postings; corrections go through
// Reverse, never through row deletion.
func (s *LedgerService) DeleteAccount(ctx context.Context, userID, ledgerID, accountID string) error {
	account, err := s.requireAccount(ctx, userID, ledgerID, accountID)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return ErrSystemCategory
	}
	hasPostings, err := s.accounts.HasPostings(ctx, accountID)
	if err != nil {
		return err
	}
	if hasPostings {
		return ErrAccountHasPostings
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.accounts.Delete(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return notFound(sql.ErrNoRows, "account")
		}
		data, _ := json.Marshal(map[string]string{"name": account.Name})
		return s.audit.Log(ctx, tx, ledgerID, userID, "delete", "account", accountID, string(data), "")
	})
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID, ledgerID string) ([]store.Account, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	return s.accounts.ListByLedger(ctx, ledgerID)
}

func (s *LedgerService) SetCategoryGroup(ctx context.Context, userID, ledgerID, categoryID string, groupID *string) error {
	category, err := s.requireAccount(ctx, userID, ledgerID, categoryID)
	if err != nil {
		return err
	}
	if category.IsSystem {
		return ErrSystemCategory
	}
	// Group headers cannot be nested under other groups.
	if category.IsGroup {
		return ErrNotCategory
	}
	if groupID != nil {
		group, err := s.accounts.GetByID(ctx, *groupID)
		if err != nil {
			return notFound(err, "category group")
		}
		if group.LedgerID != ledgerID {
			return ErrCrossLedger
		}
		if !group.IsGroup {
			return ErrNotCategory
		}
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.accounts.SetParentGroup(ctx, tx, categoryID, groupID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return notFound(sql.ErrNoRows, "category")
		}
		return nil
	})
}

type PostRequest struct {
	LedgerID        string
	DebitAccountID  string
	CreditAccountID string
	Amount          int64
	Date            time.Time
	Description     string
}

// Post records a balanced double-entry transaction. The two accounts are
// locked in id order to keep concurrent money moves serializable without
// deadlocks.
func (s *LedgerService) Post(ctx context.Context, userID string, req PostRequest) (string, error) {
	transactionID := ""
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := s.postInTx(ctx, tx, userID, req, false, nil)
		transactionID = id
		return err
	})
	if err != nil {
		return "", err
	}
	s.broadcastAccounts(ctx, userID, req.LedgerID, req.DebitAccountID, req.CreditAccountID)
	return transactionID, nil
}

// postInTx is the shared posting path used by Post and by the services
// composing multi-posting operations (budget moves, card purchases,
// reconciliation adjustments).
func (s *LedgerService) postInTx(ctx context.Context, tx *sqlx.Tx, userID string, req PostRequest, isAllocation bool, reversalOf *string) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	if req.DebitAccountID == req.CreditAccountID {
		return "", ErrSameAccount
	}
	if req.LedgerID == "" || req.DebitAccountID == "" || req.CreditAccountID == "" {
		return "", ErrMissingField
	}
	if _, err := s.ledgers.GetForUser(ctx, req.LedgerID, userID); err != nil {
		return "", notFound(err, "ledger")
	}
	debit, credit, err := lockTwoAccounts(ctx, tx, s.accounts, req.DebitAccountID, req.CreditAccountID)
	if err != nil {
		return "", notFound(err, "account")
	}
	if debit.LedgerID != req.LedgerID || credit.LedgerID != req.LedgerID {
		return "", ErrCrossLedger
	}
	if debit.IsGroup || credit.IsGroup {
		return "", ErrNotPostable
	}
	status := store.TxActive
	if reversalOf != nil {
		status = store.TxReversal
	}
	transactionID := uuid.NewString()
	if err := s.txStore.Insert(ctx, tx, store.TransactionInput{
		ID:                 transactionID,
		LedgerID:           req.LedgerID,
		Date:               req.Date,
		Description:        req.Description,
		Amount:             req.Amount,
		DebitAccountID:     req.DebitAccountID,
		CreditAccountID:    req.CreditAccountID,
		Status:             status,
		ReversalOf:         reversalOf,
		IsBudgetAllocation: isAllocation,
	}); err != nil {
		return "", err
	}
	data, _ := json.Marshal(map[string]any{
		"amount": req.Amount,
		"debit":  req.DebitAccountID,
		"credit": req.CreditAccountID,
		"date":   req.Date.Format("2006-01-02"),
	})
	if err := s.audit.Log(ctx, tx, req.LedgerID, userID, "post", "transaction", transactionID, "", string(data)); err != nil {
		return "", err
	}
	return transactionID, nil
}

// Reverse restores pre-transaction balances by posting the mirror-image
// transaction and marking the original reversed. Reversing twice is a
// conflict, not a second reversal.
func (s *LedgerService) Reverse(ctx context.Context, userID, ledgerID, transactionID string) (string, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return "", notFound(err, "ledger")
	}
	reversalID := ""
	var original store.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.txStore.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return notFound(err, "transaction")
		}
		if row.LedgerID != ledgerID {
			return ErrCrossLedger
		}
		if row.Status != store.TxActive {
			return ErrTransactionNotActive
		}
		original = row
		rows, err := s.txStore.MarkReversed(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrTransactionNotActive
		}
		reversalID = uuid.NewString()
		if err := s.txStore.Insert(ctx, tx, store.TransactionInput{
			ID:                 reversalID,
			LedgerID:           ledgerID,
			Date:               row.Date,
			Description:        "Reversal of: " + row.Description,
			Amount:             row.Amount,
			DebitAccountID:     row.CreditAccountID,
			CreditAccountID:    row.DebitAccountID,
			Status:             store.TxReversal,
			ReversalOf:         &transactionID,
			IsBudgetAllocation: row.IsBudgetAllocation,
		}); err != nil {
			return err
		}
		oldData, _ := json.Marshal(map[string]string{"status": store.TxActive})
		newData, _ := json.Marshal(map[string]string{"status": store.TxReversed, "reversal_id": reversalID})
		return s.audit.Log(ctx, tx, ledgerID, userID, "reverse", "transaction", transactionID, string(oldData), string(newData))
	})
	if err != nil {
		return "", err
	}
	s.broadcastAccounts(ctx, userID, ledgerID, original.DebitAccountID, original.CreditAccountID)
	return reversalID, nil
}

// SoftDelete excludes a transaction from balances while keeping the row
// for audit.
func (s *LedgerService) SoftDelete(ctx context.Context, userID, ledgerID, transactionID string) error {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return notFound(err, "ledger")
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.txStore.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return notFound(err, "transaction")
		}
		if row.LedgerID != ledgerID {
			return ErrCrossLedger
		}
		if row.Status != store.TxActive {
			return ErrTransactionNotActive
		}
		rows, err := s.txStore.MarkDeleted(ctx, tx, transactionID, time.Now().UTC())
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrTransactionNotActive
		}
		oldData, _ := json.Marshal(map[string]string{"status": store.TxActive})
		newData, _ := json.Marshal(map[string]string{"status": store.TxDeleted})
		return s.audit.Log(ctx, tx, ledgerID, userID, "delete", "transaction", transactionID, string(oldData), string(newData))
	})
}

func (s *LedgerService) Balance(ctx context.Context, userID, ledgerID, accountID string, asOf *time.Time) (int64, error) {
	account, err := s.requireAccount(ctx, userID, ledgerID, accountID)
	if err != nil {
		return 0, err
	}
	return s.txStore.Balance(ctx, s.reader, accountID, account.InternalType, asOf)
}

func (s *LedgerService) History(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.HistoryEntry, error) {
	account, err := s.requireAccount(ctx, userID, ledgerID, accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.txStore.History(ctx, accountID, account.InternalType, limit)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return nil, notFound(err, "ledger")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.txStore.ListByLedger(ctx, ledgerID, includeAll, limit, offset)
}

func (s *LedgerService) requireAccount(ctx context.Context, userID, ledgerID, accountID string) (store.Account, error) {
	if _, err := s.ledgers.GetForUser(ctx, ledgerID, userID); err != nil {
		return store.Account{}, notFound(err, "ledger")
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return store.Account{}, notFound(err, "account")
	}
	if account.LedgerID != ledgerID {
		return store.Account{}, ErrCrossLedger
	}
	return account, nil
}

func (s *LedgerService) broadcastAccounts(ctx context.Context, userID, ledgerID string, accountIDs ...string) {
	for _, accountID := range accountIDs {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			continue
		}
		balance, err := s.txStore.Balance(ctx, s.reader, accountID, account.InternalType, nil)
		if err != nil {
			continue
		}
		s.hub.BroadcastCategory(userID, websocket.CategoryUpdate{
			LedgerID:  ledgerID,
			AccountID: accountID,
			Name:      account.Name,
			Balance:   money.FormatMinor(balance),
		})
	}
}

func internalTypeFor(accountType string) (string, bool) {
	switch accountType {
	case store.AccountAsset, store.AccountExpense:
		return store.AssetLike, true
	case store.AccountLiability, store.AccountEquity, store.AccountRevenue:
		return store.LiabilityLike, true
	default:
		return "", false
	}
}

func lockTwoAccounts(ctx context.Context, tx store.Getter, accounts AccountStore, firstID, secondID string) (store.Account, store.Account, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	leftAccount, err := accounts.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return store.Account{}, store.Account{}, err
	}
	rightAccount, err := accounts.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return store.Account{}, store.Account{}, err
	}
	if firstID == leftID {
		return leftAccount, rightAccount, nil
	}
	return rightAccount, leftAccount, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
