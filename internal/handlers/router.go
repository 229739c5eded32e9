package handlers

import (
	"net/http"

	"github.com/henriquedevops/pgbudget-sub003/internal/config"
	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner  db.TxRunner
	cfg       config.Config
	users     UserStore
	ledger    LedgerService
	budget    BudgetService
	cards     CreditCardService
	reconcile ReconcileService
	recurring RecurringService
	goals     GoalService
	audit     AuditStore
	hub       *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, ledger LedgerService, budget BudgetService, cards CreditCardService, reconcile ReconcileService, recurring RecurringService, goals GoalService, audit AuditStore, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:  txRunner,
		cfg:       cfg,
		users:     users,
		ledger:    ledger,
		budget:    budget,
		cards:     cards,
		reconcile: reconcile,
		recurring: recurring,
		goals:     goals,
		audit:     audit,
		hub:       hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Route("/ledgers", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/", h.CreateLedger)
		r.Get("/", h.ListLedgers)
		r.Route("/{ledgerID}", func(r chi.Router) {
			r.Put("/", h.RenameLedger)
			r.Delete("/", h.DeleteLedger)

			r.Post("/accounts", h.CreateAccount)
			r.Get("/accounts", h.ListAccounts)
			r.Delete("/accounts/{accountID}", h.DeleteAccount)
			r.Put("/accounts/{accountID}/group", h.SetCategoryGroup)
			r.Get("/accounts/{accountID}/balance", h.GetBalance)
			r.Get("/accounts/{accountID}/history", h.GetHistory)

			r.Post("/transactions", h.PostTransaction)
			r.Get("/transactions", h.ListTransactions)
			r.Post("/transactions/{transactionID}/reverse", h.ReverseTransaction)
			r.Delete("/transactions/{transactionID}", h.DeleteTransaction)

			r.Get("/budget", h.BudgetStatus)
			r.Get("/budget/totals", h.BudgetTotals)
			r.Get("/budget/overspent", h.OverspentCategories)
			r.Post("/budget/assign", h.Assign)
			r.Post("/budget/move", h.MoveMoney)
			r.Post("/budget/cover", h.CoverOverspending)

			r.Route("/cards/{accountID}", func(r chi.Router) {
				r.Put("/config", h.ConfigureCard)
				r.Get("/summary", h.CardSummary)
				r.Post("/purchases", h.CardPurchase)
				r.Post("/payments", h.CardPayment)
				r.Post("/statements", h.GenerateStatement)
				r.Get("/statements", h.ListStatements)
				r.Post("/scheduled-payments", h.SchedulePayment)
				r.Get("/scheduled-payments", h.ListDuePayments)
				r.Post("/scheduled-payments/{paymentID}/execute", h.ExecuteScheduledPayment)
				r.Delete("/scheduled-payments/{paymentID}", h.CancelScheduledPayment)
			})

			r.Post("/accounts/{accountID}/reconcile", h.Reconcile)
			r.Get("/accounts/{accountID}/reconciliations", h.ReconcileHistory)
			r.Post("/accounts/{accountID}/clear", h.MarkCleared)

			r.Post("/recurring", h.CreateTemplate)
			r.Get("/recurring/due", h.ListDueTemplates)
			r.Post("/recurring/materialize-due", h.MaterializeDue)
			r.Post("/recurring/{templateID}/materialize", h.Materialize)
			r.Put("/recurring/{templateID}/enabled", h.SetTemplateEnabled)
			r.Get("/recurring/{templateID}/preview", h.PreviewTemplate)

			r.Post("/goals", h.SetGoal)
			r.Get("/goals", h.ListGoalProgress)
			r.Get("/goals/{categoryID}", h.GoalProgress)

			r.Get("/audit", h.ListAuditLog)
		})
	})

	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/audit/purge", h.PurgeAuditLog)

	router.Get("/ws/categories", h.WSCategories)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

// WSCategories authenticates via ?token= because browsers cannot set
// headers on websocket upgrades.
func (h *Handler) WSCategories(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := authParse(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims)
}
