package handlers

import (
	"context"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (store.User, error)
	GetByID(ctx context.Context, userID string) (store.User, error)
}

type LedgerService interface {
	CreateLedger(ctx context.Context, userID, name, description string) (string, error)
	RenameLedger(ctx context.Context, userID, ledgerID, name, description string) error
	ListLedgers(ctx context.Context, userID string) ([]store.Ledger, error)
	DeleteLedger(ctx context.Context, userID, ledgerID string) error
	CreateAccount(ctx context.Context, userID string, req services.AccountRequest) (services.CreatedAccount, error)
	DeleteAccount(ctx context.Context, userID, ledgerID, accountID string) error
	ListAccounts(ctx context.Context, userID, ledgerID string) ([]store.Account, error)
	SetCategoryGroup(ctx context.Context, userID, ledgerID, categoryID string, groupID *string) error
	Post(ctx context.Context, userID string, req services.PostRequest) (string, error)
	Reverse(ctx context.Context, userID, ledgerID, transactionID string) (string, error)
	SoftDelete(ctx context.Context, userID, ledgerID, transactionID string) error
	Balance(ctx context.Context, userID, ledgerID, accountID string, asOf *time.Time) (int64, error)
	History(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.HistoryEntry, error)
	ListTransactions(ctx context.Context, userID, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error)
}

type BudgetService interface {
	BudgetStatus(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.CategoryStatus, error)
	Totals(ctx context.Context, userID, ledgerID string, period dates.Month) (services.Totals, error)
	OverspentCategories(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.OverspentCategory, error)
	Assign(ctx context.Context, userID string, req services.AssignRequest) (services.AssignResult, error)
	MoveMoney(ctx context.Context, userID string, req services.MoveRequest) (string, error)
	CoverOverspending(ctx context.Context, userID, ledgerID, categoryID, sourceCategoryID string, amount int64) (string, error)
}

type CreditCardService interface {
	Configure(ctx context.Context, userID string, req services.CardConfigRequest) (string, error)
	Summary(ctx context.Context, userID, ledgerID, accountID string) (services.CardSummary, error)
	PostPurchase(ctx context.Context, userID string, req services.PurchaseRequest) (string, error)
	PostPayment(ctx context.Context, userID string, req services.CardPaymentRequest) (string, error)
	GenerateStatement(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) (store.CreditCardStatement, error)
	ListStatements(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.CreditCardStatement, error)
	SchedulePayment(ctx context.Context, userID string, req services.SchedulePaymentRequest) (string, error)
	CancelScheduledPayment(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string) error
	ExecuteScheduledPayment(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string, asOf time.Time) (int64, error)
	ListDuePayments(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) ([]store.ScheduledPayment, error)
}

type ReconcileService interface {
	Reconcile(ctx context.Context, userID string, req services.ReconcileRequest) (services.ReconcileResult, error)
	MarkCleared(ctx context.Context, userID, ledgerID, accountID string, transactionIDs []string) (int64, error)
	History(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.Reconciliation, error)
}

type RecurringService interface {
	CreateTemplate(ctx context.Context, userID string, req services.TemplateRequest) (string, error)
	Materialize(ctx context.Context, userID, ledgerID, templateID string, asOf time.Time) (services.MaterializeResult, error)
	MaterializeDue(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]services.MaterializeResult, error)
	ListDue(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error)
	SetEnabled(ctx context.Context, userID, ledgerID, templateID string, enabled bool) error
	Preview(ctx context.Context, userID, ledgerID, templateID string, count int) ([]time.Time, error)
}

type GoalService interface {
	SetGoal(ctx context.Context, userID string, req services.GoalRequest) (string, error)
	Progress(ctx context.Context, userID, ledgerID, categoryID string, period dates.Month) (services.GoalProgress, error)
	ListProgress(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.GoalProgress, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error
	ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]store.ActionRecord, error)
	PurgeOlderThan(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error)
}
