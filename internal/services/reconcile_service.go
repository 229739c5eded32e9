package services

import (
	"context"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReconcileService aligns an account's ledger balance with an external
// statement. Each run is recorded append-only; the ledger is only
// touched through a single adjustment posting when the balances differ.
type ReconcileService struct {
	txRunner        db.TxRunner
	reader          store.DB
	ledgers         LedgerStore
	accounts        AccountStore
	txStore         TransactionStore
	reconciliations ReconciliationStore
	audit           AuditStore
	ledger          *LedgerService
}

func NewReconcileService(txRunner db.TxRunner, reader store.DB, ledgers LedgerStore, accounts AccountStore, txStore TransactionStore, reconciliations ReconciliationStore, audit AuditStore, ledger *LedgerService) *ReconcileService {
	return &ReconcileService{
		txRunner:        txRunner,
		reader:          reader,
		ledgers:         ledgers,
		accounts:        accounts,
		txStore:         txStore,
		reconciliations: reconciliations,
		audit:           audit,
		ledger:          ledger,
	}
}

type ReconcileRequest struct {
	LedgerID         string
	AccountID        string
	StatementDate    time.Time
	StatementBalance int64
}

type ReconcileResult struct {
	ReconciliationID        string `json:"reconciliation_id"`
	LedgerBalance           int64  `json:"ledger_balance"`
	StatementBalance        int64  `json:"statement_balance"`
	Difference              int64  `json:"difference"`
	AdjustmentTransactionID string `json:"adjustment_transaction_id,omitempty"`
}

// Reconcile compares the account balance as of the statement date with
// the reported statement balance. A nonzero difference posts exactly
// one adjustment against the reserved Unassigned category, sized and
// oriented so the ledger lands on the statement figure.
func (s *ReconcileService) Reconcile(ctx context.Context, userID string, req ReconcileRequest) (ReconcileResult, error) {
	account, err := s.ledger.requireAccount(ctx, userID, req.LedgerID, req.AccountID)
	if err != nil {
		return ReconcileResult{}, err
	}
	if account.Type != store.AccountAsset && account.Type != store.AccountLiability {
		return ReconcileResult{}, ErrNotPostable
	}
	var result ReconcileResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		ledgerBalance, err := s.txStore.Balance(ctx, tx, req.AccountID, account.InternalType, &req.StatementDate)
		if err != nil {
			return err
		}
		difference := req.StatementBalance - ledgerBalance
		result = ReconcileResult{
			ReconciliationID: uuid.NewString(),
			LedgerBalance:    ledgerBalance,
			StatementBalance: req.StatementBalance,
			Difference:       difference,
		}
		var adjustmentID *string
		if difference != 0 {
			unassigned, err := s.accounts.GetReservedCategory(ctx, tx, req.LedgerID, store.CategoryUnassigned)
			if err != nil {
				return notFound(err, "reserved category")
			}
			debitID, creditID := req.AccountID, unassigned.ID
			amount := difference
			if account.InternalType == store.LiabilityLike {
				debitID, creditID = creditID, debitID
			}
			if amount < 0 {
				amount = -amount
				debitID, creditID = creditID, debitID
			}
			txID, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
				LedgerID:        req.LedgerID,
				DebitAccountID:  debitID,
				CreditAccountID: creditID,
				Amount:          amount,
				Date:            req.StatementDate,
				Description:     "Reconciliation adjustment",
			}, false, nil)
			if err != nil {
				return err
			}
			adjustmentID = &txID
			result.AdjustmentTransactionID = txID
		}
		if err := s.reconciliations.Insert(ctx, tx, store.Reconciliation{
			ID:                      result.ReconciliationID,
			AccountID:               req.AccountID,
			StatementDate:           req.StatementDate,
			StatementBalance:        req.StatementBalance,
			LedgerBalance:           ledgerBalance,
			Difference:              difference,
			AdjustmentTransactionID: adjustmentID,
		}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.LedgerID, userID, "reconcile", "account", req.AccountID, "", "{}")
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	return result, nil
}

// MarkCleared flags the given transactions as matched against a bank
// statement. Only rows touching the account are affected.
func (s *ReconcileService) MarkCleared(ctx context.Context, userID, ledgerID, accountID string, transactionIDs []string) (int64, error) {
	if _, err := s.ledger.requireAccount(ctx, userID, ledgerID, accountID); err != nil {
		return 0, err
	}
	if len(transactionIDs) == 0 {
		return 0, ErrMissingField
	}
	var cleared int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		cleared, err = s.txStore.MarkCleared(ctx, tx, accountID, transactionIDs)
		return err
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

func (s *ReconcileService) History(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.Reconciliation, error) {
	if _, err := s.ledger.requireAccount(ctx, userID, ledgerID, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.reconciliations.ListByAccount(ctx, accountID, limit)
}
