package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/db"
	"github.com/henriquedevops/pgbudget-sub003/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Utilization status thresholds. The warning threshold comes from the
// card configuration; critical and over-limit are fixed.
const (
	StatusGood      = "good"
	StatusWarning   = "warning"
	StatusCritical  = "critical"
	StatusOverLimit = "over_limit"
	StatusNA        = "n/a"

	criticalPercent = 95
)

// CreditCardService keeps a card's liability account and its paired
// payment category in lockstep: every purchase sets funds aside in the
// payment category, every payment releases them, so "set aside" always
// equals "owed".
type CreditCardService struct {
	txRunner db.TxRunner
	reader   store.DB
	ledgers  LedgerStore
	accounts AccountStore
	txStore  TransactionStore
	cards    CreditCardStore
	audit    AuditStore
	ledger   *LedgerService
	interest InterestPolicy
}

func NewCreditCardService(txRunner db.TxRunner, reader store.DB, ledgers LedgerStore, accounts AccountStore, txStore TransactionStore, cards CreditCardStore, audit AuditStore, ledger *LedgerService, interest InterestPolicy) *CreditCardService {
	return &CreditCardService{
		txRunner: txRunner,
		reader:   reader,
		ledgers:  ledgers,
		accounts: accounts,
		txStore:  txStore,
		cards:    cards,
		audit:    audit,
		ledger:   ledger,
		interest: interest,
	}
}

type CardConfigRequest struct {
	LedgerID                string
	AccountID               string
	CreditLimit             int64
	APR                     string
	WarningThresholdPercent int
	InterestType            string
	CompoundingFrequency    string
	StatementDayOfMonth     int
	DueDateOffsetDays       int
	GracePeriodDays         int
	MinimumPaymentPercent   string
	MinimumPaymentFlat      int64
	AutoPaymentEnabled      bool
	AutoPaymentType         string
	AutoPaymentAmount       int64
}

// Configure supersedes the active limit configuration; prior rows stay
// for history.
func (s *CreditCardService) Configure(ctx context.Context, userID string, req CardConfigRequest) (string, error) {
	if req.WarningThresholdPercent < 0 || req.WarningThresholdPercent > 100 {
		return "", ErrInvalidPercent
	}
	if _, err := s.requireCard(ctx, userID, req.LedgerID, req.AccountID); err != nil {
		return "", err
	}
	apr := req.APR
	if apr == "" {
		apr = "0"
	}
	if _, err := decimal.NewFromString(apr); err != nil {
		return "", ErrInvalidPercent
	}
	minPct := req.MinimumPaymentPercent
	if minPct == "" {
		minPct = "0"
	}
	if _, err := decimal.NewFromString(minPct); err != nil {
		return "", ErrInvalidPercent
	}
	configID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.cards.InsertConfig(ctx, tx, store.CreditCardLimit{
			ID:                      configID,
			AccountID:               req.AccountID,
			CreditLimit:             req.CreditLimit,
			APR:                     apr,
			WarningThresholdPercent: req.WarningThresholdPercent,
			InterestType:            defaultString(req.InterestType, store.InterestEndingBalance),
			CompoundingFrequency:    defaultString(req.CompoundingFrequency, store.CompoundDaily),
			StatementDayOfMonth:     req.StatementDayOfMonth,
			DueDateOffsetDays:       req.DueDateOffsetDays,
			GracePeriodDays:         req.GracePeriodDays,
			MinimumPaymentPercent:   minPct,
			MinimumPaymentFlat:      req.MinimumPaymentFlat,
			AutoPaymentEnabled:      req.AutoPaymentEnabled,
			AutoPaymentType:         defaultString(req.AutoPaymentType, store.PayMinimum),
			AutoPaymentAmount:       req.AutoPaymentAmount,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"credit_limit": req.CreditLimit, "apr": apr})
		return s.audit.Log(ctx, tx, req.LedgerID, userID, "configure", "credit_card", req.AccountID, "", string(data))
	})
	if err != nil {
		return "", err
	}
	return configID, nil
}

type PurchaseRequest struct {
	LedgerID      string
	CardAccountID string
	CategoryID    string
	Amount        int64
	Date          time.Time
	Description   string
}

// PostPurchase records a card purchase as two postings committed
// together: the spending category funds the payment category (activity
// on both), and the debt is recognized against the reserved Off-budget
// account so the card's owed balance grows by the same amount.
func (s *CreditCardService) PostPurchase(ctx context.Context, userID string, req PurchaseRequest) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	if _, err := s.requireCard(ctx, userID, req.LedgerID, req.CardAccountID); err != nil {
		return "", err
	}
	purchaseID := ""
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		payCategory, err := s.accounts.GetCCPaymentCategory(ctx, tx, req.CardAccountID)
		if err != nil {
			return notFound(err, "payment category")
		}
		offBudget, err := s.accounts.GetReservedCategory(ctx, tx, req.LedgerID, store.CategoryOffBudget)
		if err != nil {
			return notFound(err, "reserved category")
		}
		if _, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
			LedgerID:        req.LedgerID,
			DebitAccountID:  req.CategoryID,
			CreditAccountID: payCategory.ID,
			Amount:          req.Amount,
			Date:            req.Date,
			Description:     req.Description,
		}, false, nil); err != nil {
			return err
		}
		purchaseID, err = s.ledger.postInTx(ctx, tx, userID, PostRequest{
			LedgerID:        req.LedgerID,
			DebitAccountID:  offBudget.ID,
			CreditAccountID: req.CardAccountID,
			Amount:          req.Amount,
			Date:            req.Date,
			Description:     req.Description,
		}, false, nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return purchaseID, nil
}

type CardPaymentRequest struct {
	LedgerID      string
	CardAccountID string
	BankAccountID string
	Amount        int64
	Date          time.Time
	Description   string
}

// PostPayment pays the card from a bank account and releases the funds
// set aside in the payment category.
func (s *CreditCardService) PostPayment(ctx context.Context, userID string, req CardPaymentRequest) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	if _, err := s.requireCard(ctx, userID, req.LedgerID, req.CardAccountID); err != nil {
		return "", err
	}
	paymentID := ""
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		paymentID, err = s.postPaymentInTx(ctx, tx, userID, req)
		return err
	})
	if err != nil {
		return "", err
	}
	return paymentID, nil
}

func (s *CreditCardService) postPaymentInTx(ctx context.Context, tx *sqlx.Tx, userID string, req CardPaymentRequest) (string, error) {
	payCategory, err := s.accounts.GetCCPaymentCategory(ctx, tx, req.CardAccountID)
	if err != nil {
		return "", notFound(err, "payment category")
	}
	offBudget, err := s.accounts.GetReservedCategory(ctx, tx, req.LedgerID, store.CategoryOffBudget)
	if err != nil {
		return "", notFound(err, "reserved category")
	}
	description := defaultString(req.Description, "Card payment")
	paymentID, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
		LedgerID:        req.LedgerID,
		DebitAccountID:  req.CardAccountID,
		CreditAccountID: req.BankAccountID,
		Amount:          req.Amount,
		Date:            req.Date,
		Description:     description,
	}, false, nil)
	if err != nil {
		return "", err
	}
	if _, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
		LedgerID:        req.LedgerID,
		DebitAccountID:  payCategory.ID,
		CreditAccountID: offBudget.ID,
		Amount:          req.Amount,
		Date:            req.Date,
		Description:     description,
	}, false, nil); err != nil {
		return "", err
	}
	return paymentID, nil
}

// GenerateStatement closes the current billing cycle and opens the next
// one. Interest, when charged, is also posted to the ledger so the owed
// balance and the statement agree.
//
// asOf is the close date: the caller (an operator or a scheduler firing
// on the configured statement_day_of_month) decides when the cycle
// ends, and the due date is asOf plus due_date_offset_days. The service
// does not re-derive the close date from the configuration, so a caller
// closing off-schedule gets a short or long cycle, priced by actual
// days. grace_period_days is carried on the config for payment
// scheduling and is not part of the close itself.
func (s *CreditCardService) GenerateStatement(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) (store.CreditCardStatement, error) {
	if _, err := s.requireCard(ctx, userID, ledgerID, accountID); err != nil {
		return store.CreditCardStatement{}, err
	}
	var statement store.CreditCardStatement
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		config, err := s.cards.GetActiveConfig(ctx, tx, accountID)
		if err != nil {
			return notFound(err, "card configuration")
		}
		previousBalance := int64(0)
		periodStart := asOf.AddDate(0, -1, 0)
		current, err := s.cards.GetCurrentStatement(ctx, tx, accountID)
		switch {
		case err == nil:
			previousBalance = current.EndingBalance
			periodStart = current.PeriodEnd
		case errors.Is(err, sql.ErrNoRows):
			// First statement for this card.
		default:
			return err
		}
		purchases, payments, err := s.txStore.CardActivity(ctx, tx, accountID, periodStart, asOf)
		if err != nil {
			return err
		}

		apr, err := decimal.NewFromString(config.APR)
		if err != nil {
			return err
		}
		accrualBase := previousBalance
		if config.InterestType == store.InterestAverageBalance {
			accrualBase = (previousBalance + previousBalance + purchases - payments) / 2
		}
		days := int(asOf.Sub(periodStart).Hours() / 24)
		interest := s.interest.Accrue(accrualBase, apr, days, config.CompoundingFrequency)
		if interest > 0 {
			offBudget, err := s.accounts.GetReservedCategory(ctx, tx, ledgerID, store.CategoryOffBudget)
			if err != nil {
				return notFound(err, "reserved category")
			}
			if _, err := s.ledger.postInTx(ctx, tx, userID, PostRequest{
				LedgerID:        ledgerID,
				DebitAccountID:  offBudget.ID,
				CreditAccountID: accountID,
				Amount:          interest,
				Date:            asOf,
				Description:     "Interest charge",
			}, false, nil); err != nil {
				return err
			}
		}

		endingBalance := previousBalance + purchases - payments + interest
		minimumDue := minimumPayment(endingBalance, config.MinimumPaymentFlat, config.MinimumPaymentPercent)
		if _, err := s.cards.CloseCurrentStatement(ctx, tx, accountID); err != nil {
			return err
		}
		statement = store.CreditCardStatement{
			ID:                uuid.NewString(),
			AccountID:         accountID,
			PeriodStart:       periodStart,
			PeriodEnd:         asOf,
			PreviousBalance:   previousBalance,
			PurchasesAmount:   purchases,
			PaymentsAmount:    payments,
			InterestCharged:   interest,
			EndingBalance:     endingBalance,
			MinimumPaymentDue: minimumDue,
			DueDate:           asOf.AddDate(0, 0, config.DueDateOffsetDays),
			IsCurrent:         true,
		}
		if err := s.cards.InsertStatement(ctx, tx, statement); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"ending_balance": endingBalance, "minimum_due": minimumDue})
		return s.audit.Log(ctx, tx, ledgerID, userID, "generate_statement", "credit_card_statement", statement.ID, "", string(data))
	})
	if err != nil {
		return store.CreditCardStatement{}, err
	}
	return statement, nil
}

type CardSummary struct {
	AccountID          string                     `json:"account_id"`
	Name               string                     `json:"name"`
	Owed               int64                      `json:"owed"`
	SetAside           int64                      `json:"set_aside"`
	CreditLimit        int64                      `json:"credit_limit"`
	UtilizationPercent string                     `json:"utilization_percent"`
	Status             string                     `json:"status"`
	Config             *store.CreditCardLimit     `json:"config,omitempty"`
	CurrentStatement   *store.CreditCardStatement `json:"current_statement,omitempty"`
}

func (s *CreditCardService) Summary(ctx context.Context, userID, ledgerID, accountID string) (CardSummary, error) {
	card, err := s.requireCard(ctx, userID, ledgerID, accountID)
	if err != nil {
		return CardSummary{}, err
	}
	owed, err := s.txStore.Balance(ctx, s.reader, accountID, card.InternalType, nil)
	if err != nil {
		return CardSummary{}, err
	}
	payCategory, err := s.accounts.GetCCPaymentCategory(ctx, s.reader, accountID)
	if err != nil {
		return CardSummary{}, notFound(err, "payment category")
	}
	setAside, err := s.txStore.Balance(ctx, s.reader, payCategory.ID, payCategory.InternalType, nil)
	if err != nil {
		return CardSummary{}, err
	}
	summary := CardSummary{
		AccountID:          accountID,
		Name:               card.Name,
		Owed:               owed,
		SetAside:           setAside,
		UtilizationPercent: StatusNA,
		Status:             StatusNA,
	}
	config, err := s.cards.GetActiveConfig(ctx, s.reader, accountID)
	if err == nil {
		summary.Config = &config
		summary.CreditLimit = config.CreditLimit
		percent, status := Utilization(owed, config.CreditLimit, config.WarningThresholdPercent)
		summary.UtilizationPercent = percent
		summary.Status = status
	} else if !errors.Is(err, sql.ErrNoRows) {
		return CardSummary{}, err
	}
	current, err := s.cards.GetCurrentStatement(ctx, s.reader, accountID)
	if err == nil {
		summary.CurrentStatement = &current
	} else if !errors.Is(err, sql.ErrNoRows) {
		return CardSummary{}, err
	}
	return summary, nil
}

type SchedulePaymentRequest struct {
	LedgerID      string
	CardAccountID string
	BankAccountID string
	StatementID   *string
	ScheduledDate time.Time
	PaymentType   string
	PaymentAmount int64
}

func (s *CreditCardService) SchedulePayment(ctx context.Context, userID string, req SchedulePaymentRequest) (string, error) {
	if _, err := s.requireCard(ctx, userID, req.LedgerID, req.CardAccountID); err != nil {
		return "", err
	}
	bank, err := s.ledger.requireAccount(ctx, userID, req.LedgerID, req.BankAccountID)
	if err != nil {
		return "", err
	}
	if bank.Type != store.AccountAsset {
		return "", ErrMissingField
	}
	if req.PaymentType == store.PayFixedAmount && req.PaymentAmount <= 0 {
		return "", ErrInvalidAmount
	}
	paymentID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.cards.InsertScheduledPayment(ctx, tx, store.ScheduledPayment{
			ID:            paymentID,
			AccountID:     req.CardAccountID,
			StatementID:   req.StatementID,
			BankAccountID: req.BankAccountID,
			ScheduledDate: req.ScheduledDate,
			PaymentType:   req.PaymentType,
			PaymentAmount: req.PaymentAmount,
		})
	})
	if err != nil {
		return "", err
	}
	return paymentID, nil
}

func (s *CreditCardService) CancelScheduledPayment(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string) error {
	if _, err := s.requireCard(ctx, userID, ledgerID, cardAccountID); err != nil {
		return err
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.cards.CancelScheduledPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPaymentNotPending
		}
		return nil
	})
}

// ExecuteScheduledPayment settles one due payment: the amount resolves
// from the payment type against current statement/balance state, the
// payment legs post, and the row is completed. The status guard makes a
// concurrent second execution a conflict.
func (s *CreditCardService) ExecuteScheduledPayment(ctx context.Context, userID, ledgerID, cardAccountID, paymentID string, asOf time.Time) (int64, error) {
	card, err := s.requireCard(ctx, userID, ledgerID, cardAccountID)
	if err != nil {
		return 0, err
	}
	var paid int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		payment, err := s.cards.GetScheduledPaymentForUpdate(ctx, tx, paymentID)
		if err != nil {
			return notFound(err, "scheduled payment")
		}
		if payment.AccountID != cardAccountID {
			return ErrCrossLedger
		}
		if payment.Status != store.PaymentScheduled {
			return ErrPaymentNotPending
		}
		switch payment.PaymentType {
		case store.PayFixedAmount:
			paid = payment.PaymentAmount
		case store.PayFullBalance:
			owed, err := s.txStore.Balance(ctx, tx, cardAccountID, card.InternalType, nil)
			if err != nil {
				return err
			}
			paid = owed
		case store.PayMinimum:
			statement, err := s.cards.GetCurrentStatement(ctx, tx, cardAccountID)
			if err != nil {
				return notFound(err, "statement")
			}
			paid = statement.MinimumPaymentDue
		default:
			return ErrMissingField
		}
		if paid <= 0 {
			return ErrInvalidAmount
		}
		if _, err := s.postPaymentInTx(ctx, tx, userID, CardPaymentRequest{
			LedgerID:      ledgerID,
			CardAccountID: cardAccountID,
			BankAccountID: payment.BankAccountID,
			Amount:        paid,
			Date:          asOf,
			Description:   "Scheduled card payment",
		}); err != nil {
			return err
		}
		rows, err := s.cards.SettleScheduledPayment(ctx, tx, paymentID, paid)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPaymentNotPending
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return paid, nil
}

func (s *CreditCardService) ListStatements(ctx context.Context, userID, ledgerID, accountID string, limit int) ([]store.CreditCardStatement, error) {
	if _, err := s.requireCard(ctx, userID, ledgerID, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 12
	}
	return s.cards.ListStatements(ctx, accountID, limit)
}

func (s *CreditCardService) ListDuePayments(ctx context.Context, userID, ledgerID, accountID string, asOf time.Time) ([]store.ScheduledPayment, error) {
	if _, err := s.requireCard(ctx, userID, ledgerID, accountID); err != nil {
		return nil, err
	}
	return s.cards.ListDuePayments(ctx, accountID, asOf)
}

// requireCard checks ownership and that the account is a credit-card
// liability, i.e. it has a paired payment category.
func (s *CreditCardService) requireCard(ctx context.Context, userID, ledgerID, accountID string) (store.Account, error) {
	account, err := s.ledger.requireAccount(ctx, userID, ledgerID, accountID)
	if err != nil {
		return store.Account{}, err
	}
	if account.Type != store.AccountLiability {
		return store.Account{}, ErrNotCreditCard
	}
	if _, err := s.accounts.GetCCPaymentCategory(ctx, s.reader, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, ErrNotCreditCard
		}
		return store.Account{}, err
	}
	return account, nil
}

// Utilization computes balance/limit as a percentage and buckets it.
// A zero limit has no meaningful utilization.
func Utilization(owed, creditLimit int64, warningThreshold int) (string, string) {
	if creditLimit <= 0 {
		return StatusNA, StatusNA
	}
	percent := decimal.NewFromInt(owed).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(creditLimit))
	status := StatusGood
	switch {
	case percent.GreaterThanOrEqual(decimal.NewFromInt(100)):
		status = StatusOverLimit
	case percent.GreaterThanOrEqual(decimal.NewFromInt(criticalPercent)):
		status = StatusCritical
	case percent.GreaterThanOrEqual(decimal.NewFromInt(int64(warningThreshold))):
		status = StatusWarning
	}
	return percent.StringFixed(2), status
}

func minimumPayment(endingBalance, flat int64, percent string) int64 {
	if endingBalance <= 0 {
		return 0
	}
	pct, err := decimal.NewFromString(percent)
	if err != nil || !pct.IsPositive() {
		if flat > endingBalance {
			return endingBalance
		}
		return flat
	}
	byPercent := decimal.NewFromInt(endingBalance).Mul(pct).Div(decimal.NewFromInt(100)).RoundBank(0).IntPart()
	due := byPercent
	if flat > due {
		due = flat
	}
	if due > endingBalance {
		due = endingBalance
	}
	return due
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
