package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/config"
	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/handlers"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"
	"github.com/henriquedevops/pgbudget-sub003/internal/websocket"

	"github.com/jmoiron/sqlx"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	ledgers := store.NewLedgerStore(database)
	accounts := store.NewAccountStore(database)
	transactions := store.NewTransactionStore(database)
	cards := store.NewCreditCardStore(database)
	recurring := store.NewRecurringStore(database)
	goals := store.NewGoalStore(database)
	reconciliations := store.NewReconciliationStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledgerService := services.NewLedgerService(txRunner, database, ledgers, accounts, transactions, audit, hub)
	budgetService := services.NewBudgetService(txRunner, database, ledgers, accounts, transactions, ledgerService, hub)
	cardService := services.NewCreditCardService(txRunner, database, ledgers, accounts, transactions, cards, audit, ledgerService, services.SimpleAccrual{})
	reconcileService := services.NewReconcileService(txRunner, database, ledgers, accounts, transactions, reconciliations, audit, ledgerService)
	recurringService := services.NewRecurringService(txRunner, ledgers, accounts, recurring, audit, ledgerService, budgetService)
	goalService := services.NewGoalService(txRunner, database, ledgers, transactions, goals, audit, budgetService)

	handler := handlers.New(txRunner, cfg, users, ledgerService, budgetService, cardService, reconcileService, recurringService, goalService, audit, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	go purgeAuditLoop(purgeCtx, txRunner, audit, cfg.AuditRetentionDays)

	go func() {
		log.Printf("budget API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	stopPurge()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// purgeAuditLoop trims audit rows past the retention window once a day.
func purgeAuditLoop(ctx context.Context, txRunner db.TxRunner, audit *store.AuditStore, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		err := txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			purged, err := audit.PurgeOlderThan(ctx, tx, cutoff)
			if err != nil {
				return err
			}
			if purged > 0 {
				log.Printf("purged %d audit rows older than %s", purged, cutoff.Format("2006-01-02"))
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("audit purge failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
