package services

import (
	"context"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/store"
	"github.com/henriquedevops/pgbudget-sub003/internal/websocket"
)

type LedgerStore interface {
	Create(ctx context.Context, tx store.Execer, id, userID, name, description string) error
	Rename(ctx context.Context, tx store.Execer, id, name, description string) (int64, error)
	GetForUser(ctx context.Context, ledgerID, userID string) (store.Ledger, error)
	ListByUser(ctx context.Context, userID string) ([]store.Ledger, error)
	Delete(ctx context.Context, tx store.Execer, ledgerID string) (int64, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, input store.AccountInput) error
	GetByID(ctx context.Context, accountID string) (store.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (store.Account, error)
	ListByLedger(ctx context.Context, ledgerID string) ([]store.Account, error)
	GetReservedCategory(ctx context.Context, getter store.Getter, ledgerID, name string) (store.Account, error)
	GetCCPaymentCategory(ctx context.Context, getter store.Getter, cardAccountID string) (store.Account, error)
	HasPostings(ctx context.Context, accountID string) (bool, error)
	Delete(ctx context.Context, tx store.Execer, accountID string) (int64, error)
	SetParentGroup(ctx context.Context, tx store.Execer, accountID string, groupID *string) (int64, error)
}

type TransactionStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetByID(ctx context.Context, transactionID string) (store.Transaction, error)
	GetForUpdate(ctx context.Context, tx store.Getter, transactionID string) (store.Transaction, error)
	MarkReversed(ctx context.Context, tx store.Execer, transactionID string) (int64, error)
	MarkDeleted(ctx context.Context, tx store.Execer, transactionID string, deletedAt time.Time) (int64, error)
	MarkCleared(ctx context.Context, tx store.Execer, accountID string, transactionIDs []string) (int64, error)
	Balance(ctx context.Context, getter store.Getter, accountID, internalType string, asOf *time.Time) (int64, error)
	History(ctx context.Context, accountID, internalType string, limit int) ([]store.HistoryEntry, error)
	BudgetRows(ctx context.Context, sel store.Selecter, ledgerID string, periodStart, periodEnd time.Time) ([]store.BudgetRow, error)
	IncomeInPeriod(ctx context.Context, getter store.Getter, categoryID string, periodStart, periodEnd time.Time) (int64, error)
	CardActivity(ctx context.Context, getter store.Getter, cardAccountID string, afterDate, throughDate time.Time) (purchases, payments int64, err error)
	ListByLedger(ctx context.Context, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error
	ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]store.ActionRecord, error)
	PurgeOlderThan(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error)
}

type CreditCardStore interface {
	InsertConfig(ctx context.Context, tx store.Execer, input store.CreditCardLimit) error
	GetActiveConfig(ctx context.Context, getter store.Getter, accountID string) (store.CreditCardLimit, error)
	GetCurrentStatement(ctx context.Context, getter store.Getter, accountID string) (store.CreditCardStatement, error)
	CloseCurrentStatement(ctx context.Context, tx store.Execer, accountID string) (int64, error)
	InsertStatement(ctx context.Context, tx store.Execer, input store.CreditCardStatement) error
	ListStatements(ctx context.Context, accountID string, limit int) ([]store.CreditCardStatement, error)
	InsertScheduledPayment(ctx context.Context, tx store.Execer, input store.ScheduledPayment) error
	GetScheduledPaymentForUpdate(ctx context.Context, tx store.Getter, paymentID string) (store.ScheduledPayment, error)
	ListDuePayments(ctx context.Context, accountID string, asOf time.Time) ([]store.ScheduledPayment, error)
	SettleScheduledPayment(ctx context.Context, tx store.Execer, paymentID string, actualAmount int64) (int64, error)
	CancelScheduledPayment(ctx context.Context, tx store.Execer, paymentID string) (int64, error)
}

type RecurringStore interface {
	Create(ctx context.Context, tx store.Execer, input store.RecurringTransaction) error
	GetByID(ctx context.Context, templateID string) (store.RecurringTransaction, error)
	GetForUpdate(ctx context.Context, tx store.Getter, templateID string) (store.RecurringTransaction, error)
	ListDue(ctx context.Context, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error)
	InsertOccurrence(ctx context.Context, tx store.Execer, templateID string, dueDate time.Time, transactionID string) error
	AdvanceNextDate(ctx context.Context, tx store.Execer, templateID string, from, to time.Time, stillEnabled bool) (int64, error)
	SetEnabled(ctx context.Context, tx store.Execer, templateID string, enabled bool) (int64, error)
}

type GoalStore interface {
	Create(ctx context.Context, tx store.Execer, input store.Goal) error
	GetActiveByCategory(ctx context.Context, categoryID string) (store.Goal, error)
	ListActiveByLedger(ctx context.Context, ledgerID string) ([]store.Goal, error)
}

type ReconciliationStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.Reconciliation) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]store.Reconciliation, error)
}

// CategoryHub receives balance pushes after money moves.
type CategoryHub interface {
	BroadcastCategory(userID string, update websocket.CategoryUpdate)
}
