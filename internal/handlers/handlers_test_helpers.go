package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/auth"
	"github.com/henriquedevops/pgbudget-sub003/internal/config"
	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"
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

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (store.User, error)
	getByIDFn    func(ctx context.Context, userID string) (store.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (store.User, error) {
	if s.getByEmailFn == nil {
		return store.User{Email: email}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (store.User, error) {
	if s.getByIDFn == nil {
		return store.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubLedgerService struct {
	createLedgerFn     func(ctx context.Context, userID, name, description string) (string, error)
	renameLedgerFn     func(ctx context.Context, userID, ledgerID, name, description string) error
	listLedgersFn      func(ctx context.Context, userID string) ([]store.Ledger, error)
	deleteLedgerFn     func(ctx context.Context, userID, ledgerID string) error
	createAccountFn    func(ctx context.Context, userID string, req services.AccountRequest) (services.CreatedAccount, error)
	deleteAccountFn    func(ctx context.Context, userID, ledgerID, accountID string) error
	listAccountsFn     func(ctx context.Context, userID, ledgerID string) ([]store.Account, error)
	setCategoryGroupFn func(ctx context.Context, userID, ledgerID, categoryID string, groupID *string) error
	postFn             func(ctx context.Context, userID string, req services.PostRequest) (string, error)
	reverseFn          func(ctx context.Context, userID, ledgerID, transactionID string) (string, error)
	softDeleteFn       func(ctx context.Context, userID, ledgerID, transactionID string) error
	balanceFn          func(ctx context.Context, userID, ledgerID, accountID string, asOf *time.Time) (int64, error)
	historyFn          func(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.HistoryEntry, error)
	listTransactionsFn func(ctx context.Context, userID, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error)
}

func (s stubLedgerService) CreateLedger(ctx context.Context, userID, name, description string) (string, error) {
	if s.createLedgerFn == nil {
		return "ledger-1", nil
	}
	return s.createLedgerFn(ctx, userID, name, description)
}

func (s stubLedgerService) RenameLedger(ctx context.Context, userID, ledgerID, name, description string) error {
	if s.renameLedgerFn == nil {
		return nil
	}
	return s.renameLedgerFn(ctx, userID, ledgerID, name, description)
}

func (s stubLedgerService) ListLedgers(ctx context.Context, userID string) ([]store.Ledger, error) {
	if s.listLedgersFn == nil {
		return nil, nil
	}
	return s.listLedgersFn(ctx, userID)
}

func (s stubLedgerService) DeleteLedger(ctx context.Context, userID, ledgerID string) error {
	if s.deleteLedgerFn == nil {
		return nil
	}
	return s.deleteLedgerFn(ctx, userID, ledgerID)
}

func (s stubLedgerService) CreateAccount(ctx context.Context, userID string, req services.AccountRequest) (services.CreatedAccount, error) {
	if s.createAccountFn == nil {
		return services.CreatedAccount{AccountID: "acc-1"}, nil
	}
	return s.createAccountFn(ctx, userID, req)
}

func (s stubLedgerService) DeleteAccount(ctx context.Context, userID, ledgerID, accountID string) error {
	if s.deleteAccountFn == nil {
		return nil
	}
	return s.deleteAccountFn(ctx, userID, ledgerID, accountID)
}

func (s stubLedgerService) ListAccounts(ctx context.Context, userID, ledgerID string) ([]store.Account, error) {
	if s.listAccountsFn == nil {
		return nil, nil
	}
	return s.listAccountsFn(ctx, userID, ledgerID)
}

func (s stubLedgerService) SetCategoryGroup(ctx context.Context, userID, ledgerID, categoryID string, groupID *string) error {
	if s.setCategoryGroupFn == nil {
		return nil
	}
	return s.setCategoryGroupFn(ctx, userID, ledgerID, categoryID, groupID)
}

func (s stubLedgerService) Post(ctx context.Context, userID string, req services.PostRequest) (string, error) {
	if s.postFn == nil {
		return "tx-1", nil
	}
	return s.postFn(ctx, userID, req)
}

func (s stubLedgerService) Reverse(ctx context.Context, userID, ledgerID, transactionID string) (string, error) {
	if s.reverseFn == nil {
		return "tx-rev", nil
	}
	return s.reverseFn(ctx, userID, ledgerID, transactionID)
}

func (s stubLedgerService) SoftDelete(ctx context.Context, userID, ledgerID, transactionID string) error {
	if s.softDeleteFn == nil {
		return nil
	}
	return s.softDeleteFn(ctx, userID, ledgerID, transactionID)
}

func (s stubLedgerService) Balance(ctx context.Context, userID, ledgerID, accountID string, asOf *time.Time) (int64, error) {
	if s.balanceFn == nil {
		return 0, nil
	}
	return s.balanceFn(ctx, userID, ledgerID, accountID, asOf)
}

func (s stubLedgerService) History(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.HistoryEntry, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, userID, ledgerID, accountID, limit)
}

func (s stubLedgerService) ListTransactions(ctx context.Context, userID, ledgerID string, includeAll bool, limit, offset int) ([]store.Transaction, error) {
	if s.listTransactionsFn == nil {
		return nil, nil
	}
	return s.listTransactionsFn(ctx, userID, ledgerID, includeAll, limit, offset)
}

type stubBudgetService struct {
	budgetStatusFn        func(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.CategoryStatus, error)
	totalsFn              func(ctx context.Context, userID, ledgerID string, period dates.Month) (services.Totals, error)
	overspentCategoriesFn func(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.OverspentCategory, error)
	assignFn              func(ctx context.Context, userID string, req services.AssignRequest) (services.AssignResult, error)
	moveMoneyFn           func(ctx context.Context, userID string, req services.MoveRequest) (string, error)
	coverOverspendingFn   func(ctx context.Context, userID, ledgerID, categoryID, sourceCategoryID string, amount int64) (string, error)
}

func (s stubBudgetService) BudgetStatus(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.CategoryStatus, error) {
	if s.budgetStatusFn == nil {
		return nil, nil
	}
	return s.budgetStatusFn(ctx, userID, ledgerID, period)
}

func (s stubBudgetService) Totals(ctx context.Context, userID, ledgerID string, period dates.Month) (services.Totals, error) {
	if s.totalsFn == nil {
		return services.Totals{}, nil
	}
	return s.totalsFn(ctx, userID, ledgerID, period)
}

func (s stubBudgetService) OverspentCategories(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.OverspentCategory, error) {
	if s.overspentCategoriesFn == nil {
		return nil, nil
	}
	return s.overspentCategoriesFn(ctx, userID, ledgerID, period)
}

func (s stubBudgetService) Assign(ctx context.Context, userID string, req services.AssignRequest) (services.AssignResult, error) {
	if s.assignFn == nil {
		return services.AssignResult{TransactionID: "tx-1"}, nil
	}
	return s.assignFn(ctx, userID, req)
}

func (s stubBudgetService) MoveMoney(ctx context.Context, userID string, req services.MoveRequest) (string, error) {
	if s.moveMoneyFn == nil {
		return "tx-1", nil
	}
	return s.moveMoneyFn(ctx, userID, req)
}

func (s stubBudgetService) CoverOverspending(ctx context.Context, userID, ledgerID, categoryID, sourceCategoryID string, amount int64) (string, error) {
	if s.coverOverspendingFn == nil {
		return "tx-1", nil
	}
	return s.coverOverspendingFn(ctx, userID, ledgerID, categoryID, sourceCategoryID, amount)
}

type stubCardService struct {
	configureFn               func(ctx context.Context, userID string, req services.CardConfigRequest) (string, error)
	summaryFn                 func(ctx context.Context, userID, ledgerID, accountID string) (services.CardSummary, error)
	postPurchaseFn            func(ctx context.Context, userID string, req services.PurchaseRequest) (string, error)
	postPaymentFn             func(ctx context.Context, userID string, req services.CardPaymentRequest) (string, error)
	generateStatementFn       func(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) (store.CreditCardStatement, error)
	listStatementsFn          func(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.CreditCardStatement, error)
	schedulePaymentFn         func(ctx context.Context, userID string, req services.SchedulePaymentRequest) (string, error)
	cancelScheduledPaymentFn  func(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string) error
	executeScheduledPaymentFn func(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string, asOf time.Time) (int64, error)
	listDuePaymentsFn         func(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) ([]store.ScheduledPayment, error)
}

func (s stubCardService) Configure(ctx context.Context, userID string, req services.CardConfigRequest) (string, error) {
	if s.configureFn == nil {
		return "cfg-1", nil
	}
	return s.configureFn(ctx, userID, req)
}

func (s stubCardService) Summary(ctx context.Context, userID, ledgerID, accountID string) (services.CardSummary, error) {
	if s.summaryFn == nil {
		return services.CardSummary{AccountID: accountID}, nil
	}
	return s.summaryFn(ctx, userID, ledgerID, accountID)
}

func (s stubCardService) PostPurchase(ctx context.Context, userID string, req services.PurchaseRequest) (string, error) {
	if s.postPurchaseFn == nil {
		return "tx-1", nil
	}
	return s.postPurchaseFn(ctx, userID, req)
}

func (s stubCardService) PostPayment(ctx context.Context, userID string, req services.CardPaymentRequest) (string, error) {
	if s.postPaymentFn == nil {
		return "tx-1", nil
	}
	return s.postPaymentFn(ctx, userID, req)
}

func (s stubCardService) GenerateStatement(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) (store.CreditCardStatement, error) {
	if s.generateStatementFn == nil {
		return store.CreditCardStatement{AccountID: accountID}, nil
	}
	return s.generateStatementFn(ctx, userID, ledgerID, accountID, asOf)
}

func (s stubCardService) ListStatements(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.CreditCardStatement, error) {
	if s.listStatementsFn == nil {
		return nil, nil
	}
	return s.listStatementsFn(ctx, userID, ledgerID, accountID, limit)
}

func (s stubCardService) SchedulePayment(ctx context.Context, userID string, req services.SchedulePaymentRequest) (string, error) {
	if s.schedulePaymentFn == nil {
		return "pay-1", nil
	}
	return s.schedulePaymentFn(ctx, userID, req)
}

func (s stubCardService) CancelScheduledPayment(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string) error {
	if s.cancelScheduledPaymentFn == nil {
		return nil
	}
	return s.cancelScheduledPaymentFn(ctx, userID, ledgerID, cardAccountID, paymentID)
}

func (s stubCardService) ExecuteScheduledPayment(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string, asOf time.Time) (int64, error) {
	if s.executeScheduledPaymentFn == nil {
		return 0, nil
	}
	return s.executeScheduledPaymentFn(ctx, userID, ledgerID, cardAccountID, paymentID, asOf)
}

func (s stubCardService) ListDuePayments(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) ([]store.ScheduledPayment, error) {
	if s.listDuePaymentsFn == nil {
		return nil, nil
	}
	return s.listDuePaymentsFn(ctx, userID, ledgerID, accountID, asOf)
}

type stubReconcileService struct {
	reconcileFn   func(ctx context.Context, userID string, req services.ReconcileRequest) (services.ReconcileResult, error)
	markClearedFn func(ctx context.Context, userID, ledgerID, accountID string, transactionIDs []string) (int64, error)
	historyFn     func(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.Reconciliation, error)
}

func (s stubReconcileService) Reconcile(ctx context.Context, userID string, req services.ReconcileRequest) (services.ReconcileResult, error) {
	if s.reconcileFn == nil {
		return services.ReconcileResult{}, nil
	}
	return s.reconcileFn(ctx, userID, req)
}

func (s stubReconcileService) MarkCleared(ctx context.Context, userID, ledgerID, accountID string, transactionIDs []string) (int64, error) {
	if s.markClearedFn == nil {
		return int64(len(transactionIDs)), nil
	}
	return s.markClearedFn(ctx, userID, ledgerID, accountID, transactionIDs)
}

func (s stubReconcileService) History(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.Reconciliation, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, userID, ledgerID, accountID, limit)
}

type stubRecurringService struct {
	createTemplateFn func(ctx context.Context, userID string, req services.TemplateRequest) (string, error)
	materializeFn    func(ctx context.Context, userID, ledgerID, templateID string, asOf time.Time) (services.MaterializeResult, error)
	materializeDueFn func(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]services.MaterializeResult, error)
	listDueFn        func(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error)
	setEnabledFn     func(ctx context.Context, userID, ledgerID, templateID string, enabled bool) error
	previewFn        func(ctx context.Context, userID, ledgerID, templateID string, count int) ([]time.Time, error)
}

func (s stubRecurringService) CreateTemplate(ctx context.Context, userID string, req services.TemplateRequest) (string, error) {
	if s.createTemplateFn == nil {
		return "tpl-1", nil
	}
	return s.createTemplateFn(ctx, userID, req)
}

func (s stubRecurringService) Materialize(ctx context.Context, userID, ledgerID, templateID string, asOf time.Time) (services.MaterializeResult, error) {
	if s.materializeFn == nil {
		return services.MaterializeResult{TransactionID: "tx-1"}, nil
	}
	return s.materializeFn(ctx, userID, ledgerID, templateID, asOf)
}

func (s stubRecurringService) MaterializeDue(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]services.MaterializeResult, error) {
	if s.materializeDueFn == nil {
		return nil, nil
	}
	return s.materializeDueFn(ctx, userID, ledgerID, asOf)
}

func (s stubRecurringService) ListDue(ctx context.Context, userID, ledgerID string, asOf time.Time) ([]store.RecurringTransaction, error) {
	if s.listDueFn == nil {
		return nil, nil
	}
	return s.listDueFn(ctx, userID, ledgerID, asOf)
}

func (s stubRecurringService) SetEnabled(ctx context.Context, userID, ledgerID, templateID string, enabled bool) error {
	if s.setEnabledFn == nil {
		return nil
	}
	return s.setEnabledFn(ctx, userID, ledgerID, templateID, enabled)
}

func (s stubRecurringService) Preview(ctx context.Context, userID, ledgerID, templateID string, count int) ([]time.Time, error) {
	if s.previewFn == nil {
		return nil, nil
	}
	return s.previewFn(ctx, userID, ledgerID, templateID, count)
}

type stubGoalService struct {
	setGoalFn      func(ctx context.Context, userID string, req services.GoalRequest) (string, error)
	progressFn     func(ctx context.Context, userID, ledgerID, categoryID string, period dates.Month) (services.GoalProgress, error)
	listProgressFn func(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.GoalProgress, error)
}

func (s stubGoalService) SetGoal(ctx context.Context, userID string, req services.GoalRequest) (string, error) {
	if s.setGoalFn == nil {
		return "goal-1", nil
	}
	return s.setGoalFn(ctx, userID, req)
}

func (s stubGoalService) Progress(ctx context.Context, userID, ledgerID, categoryID string, period dates.Month) (services.GoalProgress, error) {
	if s.progressFn == nil {
		return services.GoalProgress{CategoryID: categoryID}, nil
	}
	return s.progressFn(ctx, userID, ledgerID, categoryID, period)
}

func (s stubGoalService) ListProgress(ctx context.Context, userID, ledgerID string, period dates.Month) ([]services.GoalProgress, error) {
	if s.listProgressFn == nil {
		return nil, nil
	}
	return s.listProgressFn(ctx, userID, ledgerID, period)
}

type stubAuditStore struct {
	logFn          func(ctx context.Context, tx store.Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error
	listByLedgerFn func(ctx context.Context, ledgerID string, limit, offset int) ([]store.ActionRecord, error)
	purgeFn        func(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, ledgerID, actorID, actionType, entityType, entityID, oldData, newData string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, ledgerID, actorID, actionType, entityType, entityID, oldData, newData)
}

func (s stubAuditStore) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]store.ActionRecord, error) {
	if s.listByLedgerFn == nil {
		return nil, nil
	}
	return s.listByLedgerFn(ctx, ledgerID, limit, offset)
}

func (s stubAuditStore) PurgeOlderThan(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error) {
	if s.purgeFn == nil {
		return 0, nil
	}
	return s.purgeFn(ctx, tx, cutoff)
}

type testDeps struct {
	users     UserStore
	ledger    LedgerService
	budget    BudgetService
	cards     CreditCardService
	reconcile ReconcileService
	recurring RecurringService
	goals     GoalService
	audit     AuditStore
}

func newTestHandler(deps testDeps) *Handler {
	if deps.users == nil {
		deps.users = stubUserStore{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedgerService{}
	}
	if deps.budget == nil {
		deps.budget = stubBudgetService{}
	}
	if deps.cards == nil {
		deps.cards = stubCardService{}
	}
	if deps.reconcile == nil {
		deps.reconcile = stubReconcileService{}
	}
	if deps.recurring == nil {
		deps.recurring = stubRecurringService{}
	}
	if deps.goals == nil {
		deps.goals = stubGoalService{}
	}
	if deps.audit == nil {
		deps.audit = stubAuditStore{}
	}
	cfg := config.Config{
		AppEnv:             "test",
		Port:               "0",
		JWTSecret:          "secret",
		TokenTTL:           time.Minute,
		AllowedOrigins:     "*",
		AuditRetentionDays: 30,
	}
	return New(fakeTxRunner{}, cfg, deps.users, deps.ledger, deps.budget, deps.cards,
		deps.reconcile, deps.recurring, deps.goals, deps.audit, websocket.NewHub())
}

// serveAuthed routes an authenticated request through the full router so
// chi URL params resolve the same way they do in production.
func serveAuthed(t *testing.T, h *Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", "user-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func serve(h *Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}
