package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/store"
	"github.com/henriquedevops/pgbudget-sub003/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubHub struct {
	updates []websocket.CategoryUpdate
}

func (h *stubHub) BroadcastCategory(userID string, update websocket.CategoryUpdate) {
	h.updates = append(h.updates, update)
}

type stubLedgerStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, userID, name, description string) error
	renameFn     func(ctx context.Context, tx store.Execer, id, name, description string) (int64, error)
	getForUserFn func(ctx context.Context, ledgerID, userID string) (store.Ledger, error)
	listByUserFn func(ctx context.Context, userID string) ([]store.Ledger, error)
	deleteFn     func(ctx context.Context, tx store.Execer, ledgerID string) (int64, error)
}

func (s stubLedgerStore) Create(ctx context.Context, tx store.Execer, id, userID, name, description string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, userID, name, description)
}

func (s stubLedgerStore) Rename(ctx context.Context, tx store.Execer, id, name, description string) (int64, error) {
	if s.renameFn == nil {
		return 1, nil
	}
	return s.renameFn(ctx, tx, id, name, description)
}

func (s stubLedgerStore) GetForUser(ctx context.Context, ledgerID, userID string) (store.Ledger, error) {
	if s.getForUserFn == nil {
		return store.Ledger{ID: ledgerID, UserID: userID}, nil
	}
	return s.getForUserFn(ctx, ledgerID, userID)
}

func (s stubLedgerStore) ListByUser(ctx context.Context, userID string) ([]store.Ledger, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s stubLedgerStore) Delete(ctx context.Context, tx store.Execer, ledgerID string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, tx, ledgerID)
}

type stubAccountStore struct {
	createFn               func(ctx context.Context, tx store.Execer, input store.AccountInput) error
	getByIDFn              func(ctx context.Context, accountID string) (store.Account, error)
	getForUpdateFn         func(ctx context.Context, tx store.Getter, accountID string) (store.Account, error)
	listByLedgerFn         func(ctx context.Context, ledgerID string) ([]store.Account, error)
	getReservedCategoryFn  func(ctx context.Context, getter store.Getter, ledgerID, name string) (store.Account, error)
	getCCPaymentCategoryFn func(ctx context.Context, getter store.Getter, cardAccountID string) (store.Account, error)
	hasPostingsFn          func(ctx context.Context, accountID string) (bool, error)
	deleteFn               func(ctx context.Context, tx store.Execer, accountID string) (int64, error)
	setParentGroupFn       func(ctx context.Context, tx store.Execer, accountID string, groupID *string) (int64, error)
}

func (s *stubAccountStore) Create(ctx context.Context, tx store.Execer, input store.AccountInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s *stubAccountStore) GetByID(ctx context.Context, accountID string) (store.Account, error) {
	if s.getByIDFn == nil {
		return store.Account{ID: accountID}, nil
	}
	return s.getByIDFn(ctx, accountID)
}

func (s *stubAccountStore) GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (store.Account, error) {
	if s.getForUpdateFn == nil {
		return store.Account{ID: accountID}, nil
	}
	return s.getForUpdateFn(ctx, tx, accountID)
}

func (s *stubAccountStore) ListByLedger(ctx context.Context, ledgerID string) ([]store.Account, error) {
	if s.listByLedgerFn == nil {
		return nil, nil
	}
	return s.listByLedgerFn(ctx, ledgerID)
}

func (s *stubAccountStore) GetReservedCategory(ctx context.Context, getter store.Getter, ledgerID, name string) (store.Account, error) {
	if s.getReservedCategoryFn == nil {
		return store.Account{ID: "reserved-" + name, LedgerID: ledgerID, Name: name, Type: store.AccountEquity, InternalType: store.LiabilityLike, IsSystem: true}, nil
	}
	return s.getReservedCategoryFn(ctx, getter, ledgerID, name)
}

func (s *stubAccountStore) GetCCPaymentCategory(ctx context.Context, getter store.Getter, cardAccountID string) (store.Account, error) {
	if s.getCCPaymentCategoryFn == nil {
		return store.Account{ID: "pay-" + cardAccountID, Type: store.AccountEquity, InternalType: store.LiabilityLike, IsCCPayment: true}, nil
	}
	return s.getCCPaymentCategoryFn(ctx, getter, cardAccountID)
}

func (s *stubAccountStore) HasPostings(ctx context.Context, accountID string) (bool, error) {
	if s.hasPostingsFn == nil {
		return false, nil
	}
	return s.hasPostingsFn(ctx, accountID)
}

func (s *stubAccountStore) Delete(ctx context.Context, tx store.Execer, accountID string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, tx, accountID)
}

func (s *stubAccountStore) SetParentGroup(ctx context.Context, tx store.Execer, accountID string, groupID *string) (int64, error) {
	if s.setParentGroupFn == nil {
		return 1, nil
	}
	return s.setParentGroupFn(ctx, tx, accountID, groupID)
}

type stubTransactionStore struct {
	insertFn         func(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	getByIDFn        func(ctx context.Context, transactionID string) (store.Transaction, error)
	getForUpdateFn   func(ctx context.Context, tx store.Getter, transactionID string) (store.Transaction, error)
	markReversedFn   func(ctx context.Context, tx store.Execer, transactionID string) (int64, error)
	markDeletedFn    func(ctx context.Context, tx store.Execer, transactionID string, deletedAt time.Time) (int64, error)
	markClearedFn    func(ctx context.Context, tx store.Execer, accountID string, transactionIDs []string) (int64, error)
	balanceFn        func(ctx context.Context, getter store.Getter, accountID, internalType string, asOf *time.Time) (int64, error)
	historyFn        func(ctx context.Context, accountID, internalType string, limit int) ([]store.HistoryEntry, error)
	budgetRowsFn     func(ctx context.Context, sel store.Selecter, ledgerID string, periodStart, periodEnd time.Time) ([]store.BudgetRow, error)
	incomeInPeriodFn func(ctx context.Context, getter store.Getter, categoryID string, periodStart, periodEnd time.Time) (int64, error)
	cardActivityFn   func(ctx context.Context, getter store.Getter, cardAccountID string, afterDate, throughDate time.Time) (int64, int64, error)
	listByLedgerFn   func(ctx context.Context, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error)
}

func (s *stubTransactionStore) Insert(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s *stubTransactionStore) GetByID(ctx context.Context, transactionID string) (store.Transaction, error) {
	if s.getByIDFn == nil {
		return store.Transaction{ID: transactionID}, nil
	}
	return s.getByIDFn(ctx, transactionID)
}

func (s *stubTransactionStore) GetForUpdate(ctx context.Context, tx store.Getter, transactionID string) (store.Transaction, error) {
	if s.getForUpdateFn == nil {
		return store.Transaction{ID: transactionID}, nil
	}
	return s.getForUpdateFn(ctx, tx, transactionID)
}

func (s *stubTransactionStore) MarkReversed(ctx context.Context, tx store.Execer, transactionID string) (int64, error) {
	if s.markReversedFn == nil {
		return 1, nil
	}
	return s.markReversedFn(ctx, tx, transactionID)
}

func (s *stubTransactionStore) MarkDeleted(ctx context.Context, tx store.Execer, transactionID string, deletedAt time.Time) (int64, error) {
	if s.markDeletedFn == nil {
		return 1, nil
	}
	return s.markDeletedFn(ctx, tx, transactionID, deletedAt)
}

func (s *stubTransactionStore) MarkCleared(ctx context.Context, tx store.Execer, accountID string, transactionIDs []string) (int64, error) {
	if s.markClearedFn == nil {
		return int64(len(transactionIDs)), nil
	}
	return s.markClearedFn(ctx, tx, accountID, transactionIDs)
}

func (s *stubTransactionStore) Balance(ctx context.Context, getter store.Getter, accountID, internalType string, asOf *time.Time) (int64, error) {
	if s.balanceFn == nil {
		return 0, nil
	}
	return s.balanceFn(ctx, getter, accountID, internalType, asOf)
}

func (s *stubTransactionStore) History(ctx context.Context, accountID, internalType string, limit int) ([]store.HistoryEntry, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, accountID, internalType, limit)
}

func (s *stubTransactionStore) BudgetRows(ctx context.Context, sel store.Selecter, ledgerID string, periodStart, periodEnd time.Time) ([]store.BudgetRow, error) {
	if s.budgetRowsFn == nil {
		return nil, nil
	}
	return s.budgetRowsFn(ctx, sel, ledgerID, periodStart, periodEnd)
}

func (s *stubTransactionStore) IncomeInPeriod(ctx context.Context, getter store.Getter, categoryID string, periodStart, periodEnd time.Time) (int64, error) {
	if s.incomeInPeriodFn == nil {
		return 0, nil
	}
	return s.incomeInPeriodFn(ctx, getter, categoryID, periodStart, periodEnd)
}

func (s *stubTransactionStore) CardActivity(ctx context.Context, getter store.Getter, cardAccountID string, afterDate, throughDate time.Time) (int64, int64, error) {
	if s.cardActivityFn == nil {
		return 0, 0, nil
	}
	return s.cardActivityFn(ctx, getter, cardAccountID, afterDate, throughDate)
}

func (s *stubTransactionStore) ListByLedger(ctx context.Context, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error) {
	if s.listByLedgerFn == nil {
		return nil, nil
	}
	return s.listByLedgerFn(ctx, ledgerID, includeAll, limit, offset)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, ledgerID, actorID, actionType, entityType, entityID, oldData, newData)
}

func (s stubAuditStore) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]store.ActionRecord, error) {
	return nil, nil
}

func (s stubAuditStore) PurgeOlderThan(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubCreditCardStore struct {
	insertConfigFn                 func(ctx context.Context, tx store.Execer, input store.CreditCardLimit) error
	getActiveConfigFn              func(ctx context.Context, getter store.Getter, accountID string) (store.CreditCardLimit, error)
	getCurrentStatementFn          func(ctx context.Context, getter store.Getter, accountID string) (store.CreditCardStatement, error)
	closeCurrentStatementFn        func(ctx context.Context, tx store.Execer, accountID string) (int64, error)
	insertStatementFn              func(ctx context.Context, tx store.Execer, input store.CreditCardStatement) error
	listStatementsFn               func(ctx context.Context, accountID string, limit int) ([]store.CreditCardStatement, error)
	insertScheduledPaymentFn       func(ctx context.Context, tx store.Execer, input store.ScheduledPayment) error
	getScheduledPaymentForUpdateFn func(ctx context.Context, tx store.Getter, paymentID string) (store.ScheduledPayment, error)
	listDuePaymentsFn              func(ctx context.Context, accountID string, asOf time.Time) ([]store.ScheduledPayment, error)
	settleScheduledPaymentFn       func(ctx context.Context, tx store.Execer, paymentID string, actualAmount int64) (int64, error)
	cancelScheduledPaymentFn       func(ctx context.Context, tx store.Execer, paymentID string) (int64, error)
}

func (s *stubCreditCardStore) InsertConfig(ctx context.Context, tx store.Execer, input store.CreditCardLimit) error {
	if s.insertConfigFn == nil {
		return nil
	}
	return s.insertConfigFn(ctx, tx, input)
}

func (s *stubCreditCardStore) GetActiveConfig(ctx context.Context, getter store.Getter, accountID string) (store.CreditCardLimit, error) {
	if s.getActiveConfigFn == nil {
		return store.CreditCardLimit{AccountID: accountID, APR: "0", MinimumPaymentPercent: "0"}, nil
	}
	return s.getActiveConfigFn(ctx, getter, accountID)
}

func (s *stubCreditCardStore) GetCurrentStatement(ctx context.Context, getter store.Getter, accountID string) (store.CreditCardStatement, error) {
	if s.getCurrentStatementFn == nil {
		return store.CreditCardStatement{AccountID: accountID}, nil
	}
	return s.getCurrentStatementFn(ctx, getter, accountID)
}

func (s *stubCreditCardStore) CloseCurrentStatement(ctx context.Context, tx store.Execer, accountID string) (int64, error) {
	if s.closeCurrentStatementFn == nil {
		return 1, nil
	}
	return s.closeCurrentStatementFn(ctx, tx, accountID)
}

func (s *stubCreditCardStore) InsertStatement(ctx context.Context, tx store.Execer, input store.CreditCardStatement) error {
	if s.insertStatementFn == nil {
		return nil
	}
	return s.insertStatementFn(ctx, tx, input)
}

func (s *stubCreditCardStore) ListStatements(ctx context.Context, accountID string, limit int) ([]store.CreditCardStatement, error) {
	if s.listStatementsFn == nil {
		return nil, nil
	}
	return s.listStatementsFn(ctx, accountID, limit)
}

func (s *stubCreditCardStore) InsertScheduledPayment(ctx context.Context, tx store.Execer, input store.ScheduledPayment) error {
	if s.insertScheduledPaymentFn == nil {
		return nil
	}
	return s.insertScheduledPaymentFn(ctx, tx, input)
}

func (s *stubCreditCardStore) GetScheduledPaymentForUpdate(ctx context.Context, tx store.Getter, paymentID string) (store.ScheduledPayment, error) {
	if s.getScheduledPaymentForUpdateFn == nil {
		return store.ScheduledPayment{ID: paymentID, Status: store.PaymentScheduled}, nil
	}
	return s.getScheduledPaymentForUpdateFn(ctx, tx, paymentID)
}

func (s *stubCreditCardStore) ListDuePayments(ctx context.Context, accountID string, asOf time.Time) ([]store.ScheduledPayment, error) {
	if s.listDuePaymentsFn == nil {
		return nil, nil
	}
	return s.listDuePaymentsFn(ctx, accountID, asOf)
}

func (s *stubCreditCardStore) SettleScheduledPayment(ctx context.Context, tx store.Execer, paymentID string, actualAmount int64) (int64, error) {
	if s.settleScheduledPaymentFn == nil {
		return 1, nil
	}
	return s.settleScheduledPaymentFn(ctx, tx, paymentID, actualAmount)
}

func (s *stubCreditCardStore) CancelScheduledPayment(ctx context.Context, tx store.Execer, paymentID string) (int64, error) {
	if s.cancelScheduledPaymentFn == nil {
		return 1, nil
	}
	return s.cancelScheduledPaymentFn(ctx, tx, paymentID)
}

type stubRecurringStore struct {
	createFn           func(ctx context.Context, tx store.Execer, input store.RecurringTransaction) error
	getByIDFn          func(ctx context.Context, templateID string) (store.RecurringTransaction, error)
	getForUpdateFn     func(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error)
	listDueFn          func(ctx context.Context, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error)
	insertOccurrenceFn func(ctx context.Context, tx store.Execer, templateID string, dueDate time.Time, transactionID string) error
	advanceNextDateFn  func(ctx context.Context, tx store.Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error)
	setEnabledFn       func(ctx context.Context, tx store.Execer, templateID string, enabled bool) (int64, error)
}

func (s *stubRecurringStore) Create(ctx context.Context, tx store.Execer, input store.RecurringTransaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s *stubRecurringStore) GetByID(ctx context.Context, templateID string) (store.RecurringTransaction, error) {
	if s.getByIDFn == nil {
		return store.RecurringTransaction{ID: templateID, Enabled: true}, nil
	}
	return s.getByIDFn(ctx, templateID)
}

func (s *stubRecurringStore) GetForUpdate(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error) {
	if s.getForUpdateFn == nil {
		return store.RecurringTransaction{ID: templateID, Enabled: true}, nil
	}
	return s.getForUpdateFn(ctx, tx, templateID)
}

func (s *stubRecurringStore) ListDue(ctx context.Context, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error) {
	if s.listDueFn == nil {
		return nil, nil
	}
	return s.listDueFn(ctx, ledgerID, asOf)
}

func (s *stubRecurringStore) InsertOccurrence(ctx context.Context, tx store.Execer, templateID string, dueDate time.Time, transactionID string) error {
	if s.insertOccurrenceFn == nil {
		return nil
	}
	return s.insertOccurrenceFn(ctx, tx, templateID, dueDate, transactionID)
}

func (s *stubRecurringStore) AdvanceNextDate(ctx context.Context, tx store.Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error) {
	if s.advanceNextDateFn == nil {
		return 1, nil
	}
	return s.advanceNextDateFn(ctx, tx, templateID, from, to, stillEnabled)
}

func (s *stubRecurringStore) SetEnabled(ctx context.Context, tx store.Execer, templateID string, enabled bool) (int64, error) {
	if s.setEnabledFn == nil {
		return 1, nil
	}
	return s.setEnabledFn(ctx, tx, templateID, enabled)
}

type stubGoalStore struct {
	createFn              func(ctx context.Context, tx store.Execer, input store.Goal) error
	getActiveByCategoryFn func(ctx context.Context, categoryID string) (store.Goal, error)
	listActiveByLedgerFn  func(ctx context.Context, ledgerID string) ([]store.Goal, error)
}

func (s *stubGoalStore) Create(ctx context.Context, tx store.Execer, input store.Goal) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s *stubGoalStore) GetActiveByCategory(ctx context.Context, categoryID string) (store.Goal, error) {
	if s.getActiveByCategoryFn == nil {
		return store.Goal{CategoryID: categoryID, IsActive: true}, nil
	}
	return s.getActiveByCategoryFn(ctx, categoryID)
}

func (s *stubGoalStore) ListActiveByLedger(ctx context.Context, ledgerID string) ([]store.Goal, error) {
	if s.listActiveByLedgerFn == nil {
		return nil, nil
	}
	return s.listActiveByLedgerFn(ctx, ledgerID)
}

type stubReconciliationStore struct {
	insertFn        func(ctx context.Context, tx store.Execer, input store.Reconciliation) error
	listByAccountFn func(ctx context.Context, accountID string, limit int) ([]store.Reconciliation, error)
}

func (s *stubReconciliationStore) Insert(ctx context.Context, tx store.Execer, input store.Reconciliation) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s *stubReconciliationStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]store.Reconciliation, error) {
	if s.listByAccountFn == nil {
		return nil, nil
	}
	return s.listByAccountFn(ctx, accountID, limit)
}

// accountWorld wires the account stubs to a fixed set of accounts, so a
// test can describe its ledger once and let lookups resolve naturally.
type accountWorld struct {
	accounts map[string]store.Account
}

func newAccountWorld(accounts ...store.Account) *accountWorld {
	world := &accountWorld{accounts: make(map[string]store.Account, len(accounts))}
	for _, account := range accounts {
		world.accounts[account.ID] = account
	}
	return world
}

func (w *accountWorld) store() *stubAccountStore {
	lookup := func(accountID string) (store.Account, error) {
		account, ok := w.accounts[accountID]
		if !ok {
			return store.Account{}, sql.ErrNoRows
		}
		return account, nil
	}
	return &stubAccountStore{
		getByIDFn: func(ctx context.Context, accountID string) (store.Account, error) {
			return lookup(accountID)
		},
		getForUpdateFn: func(ctx context.Context, tx store.Getter, accountID string) (store.Account, error) {
			return lookup(accountID)
		},
		getReservedCategoryFn: func(ctx context.Context, getter store.Getter, ledgerID, name string) (store.Account, error) {
			for _, account := range w.accounts {
				if account.LedgerID == ledgerID && account.IsSystem && account.Name == name {
					return account, nil
				}
			}
			return store.Account{}, sql.ErrNoRows
		},
		getCCPaymentCategoryFn: func(ctx context.Context, getter store.Getter, cardAccountID string) (store.Account, error) {
			for _, account := range w.accounts {
				if account.IsCCPayment && account.LinkedAccountID != nil && *account.LinkedAccountID == cardAccountID {
					return account, nil
				}
			}
			return store.Account{}, sql.ErrNoRows
		},
	}
}
