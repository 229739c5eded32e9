package store

import (
	"context"
	"time"
)

const (
	PaymentScheduled = "scheduled"
	PaymentCompleted = "completed"
	PaymentCancelled = "cancelled"

	PayMinimum     = "minimum"
	PayFullBalance = "full_balance"
	PayFixedAmount = "fixed_amount"

	InterestEndingBalance  = "ending_balance"
	InterestAverageBalance = "average_balance"

	CompoundDaily   = "daily"
	CompoundMonthly = "monthly"
)

type CreditCardStore struct {
	db DB
}

type CreditCardLimit struct {
	ID                      string     `db:"id"`
	AccountID               string     `db:"account_id"`
	CreditLimit             int64      `db:"credit_limit"`
	APR                     string     `db:"apr"`
	WarningThresholdPercent int        `db:"warning_threshold_percent"`
	InterestType            string     `db:"interest_type"`
	CompoundingFrequency    string     `db:"compounding_frequency"`
	StatementDayOfMonth     int        `db:"statement_day_of_month"`
	DueDateOffsetDays       int        `db:"due_date_offset_days"`
	GracePeriodDays         int        `db:"grace_period_days"`
	MinimumPaymentPercent   string     `db:"minimum_payment_percent"`
	MinimumPaymentFlat      int64      `db:"minimum_payment_flat"`
	AutoPaymentEnabled      bool       `db:"auto_payment_enabled"`
	AutoPaymentType         string     `db:"auto_payment_type"`
	AutoPaymentAmount       int64      `db:"auto_payment_amount"`
	AutoPaymentDate         *time.Time `db:"auto_payment_date"`
	IsActive                bool       `db:"is_active"`
	CreatedAt               time.Time  `db:"created_at"`
}

type CreditCardStatement struct {
	ID                string    `db:"id"`
	AccountID         string    `db:"account_id"`
	PeriodStart       time.Time `db:"period_start"`
	PeriodEnd         time.Time `db:"period_end"`
	PreviousBalance   int64     `db:"previous_balance"`
	PurchasesAmount   int64     `db:"purchases_amount"`
	PaymentsAmount    int64     `db:"payments_amount"`
	InterestCharged   int64     `db:"interest_charged"`
	FeesCharged       int64     `db:"fees_charged"`
	EndingBalance     int64     `db:"ending_balance"`
	MinimumPaymentDue int64     `db:"minimum_payment_due"`
	DueDate           time.Time `db:"due_date"`
	IsCurrent         bool      `db:"is_current"`
	CreatedAt         time.Time `db:"created_at"`
}

type ScheduledPayment struct {
	ID               string    `db:"id"`
	AccountID        string    `db:"account_id"`
	StatementID      *string   `db:"statement_id"`
	BankAccountID    string    `db:"bank_account_id"`
	ScheduledDate    time.Time `db:"scheduled_date"`
	PaymentType      string    `db:"payment_type"`
	PaymentAmount    int64     `db:"payment_amount"`
	Status           string    `db:"status"`
	ActualAmountPaid *int64    `db:"actual_amount_paid"`
	CreatedAt        time.Time `db:"created_at"`
}

func NewCreditCardStore(db DB) *CreditCardStore {
	return &CreditCardStore{db: db}
}

// InsertConfig supersedes the prior active configuration rather than
// overwriting it: the old row is deactivated and kept for history.
func (s *CreditCardStore) InsertConfig(ctx context.Context, tx Execer, input CreditCardLimit) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE credit_card_limits SET is_active = FALSE
		WHERE account_id = $1 AND is_active = TRUE
	`, input.AccountID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_card_limits (
			id, account_id, credit_limit, apr, warning_threshold_percent, interest_type,
			compounding_frequency, statement_day_of_month, due_date_offset_days, grace_period_days,
			minimum_payment_percent, minimum_payment_flat, auto_payment_enabled, auto_payment_type,
			auto_payment_amount, auto_payment_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, TRUE)
	`, input.ID, input.AccountID, input.CreditLimit, input.APR, input.WarningThresholdPercent,
		input.InterestType, input.CompoundingFrequency, input.StatementDayOfMonth,
		input.DueDateOffsetDays, input.GracePeriodDays, input.MinimumPaymentPercent,
		input.MinimumPaymentFlat, input.AutoPaymentEnabled, input.AutoPaymentType,
		input.AutoPaymentAmount, input.AutoPaymentDate)
	return err
}

func (s *CreditCardStore) GetActiveConfig(ctx context.Context, getter Getter, accountID string) (CreditCardLimit, error) {
	var row CreditCardLimit
	err := getter.GetContext(ctx, &row, `
		SELECT id, account_id, credit_limit, apr, warning_threshold_percent, interest_type,
		       compounding_frequency, statement_day_of_month, due_date_offset_days, grace_period_days,
		       minimum_payment_percent, minimum_payment_flat, auto_payment_enabled, auto_payment_type,
		       auto_payment_amount, auto_payment_date, is_active, created_at
		FROM credit_card_limits
		WHERE account_id = $1 AND is_active = TRUE
	`, accountID)
	if err != nil {
		return CreditCardLimit{}, err
	}
	return row, nil
}

func (s *CreditCardStore) GetCurrentStatement(ctx context.Context, getter Getter, accountID string) (CreditCardStatement, error) {
	var row CreditCardStatement
	err := getter.GetContext(ctx, &row, `
		SELECT id, account_id, period_start, period_end, previous_balance, purchases_amount,
		       payments_amount, interest_charged, fees_charged, ending_balance,
		       minimum_payment_due, due_date, is_current, created_at
		FROM credit_card_statements
		WHERE account_id = $1 AND is_current = TRUE
	`, accountID)
	if err != nil {
		return CreditCardStatement{}, err
	}
	return row, nil
}

func (s *CreditCardStore) CloseCurrentStatement(ctx context.Context, tx Execer, accountID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE credit_card_statements SET is_current = FALSE
		WHERE account_id = $1 AND is_current = TRUE
	`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *CreditCardStore) InsertStatement(ctx context.Context, tx Execer, input CreditCardStatement) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_card_statements (
			id, account_id, period_start, period_end, previous_balance, purchases_amount,
			payments_amount, interest_charged, fees_charged, ending_balance,
			minimum_payment_due, due_date, is_current
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
	`, input.ID, input.AccountID, input.PeriodStart, input.PeriodEnd, input.PreviousBalance,
		input.PurchasesAmount, input.PaymentsAmount, input.InterestCharged, input.FeesCharged,
		input.EndingBalance, input.MinimumPaymentDue, input.DueDate)
	return err
}

func (s *CreditCardStore) ListStatements(ctx context.Context, accountID string, limit int) ([]CreditCardStatement, error) {
	var rows []CreditCardStatement
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, period_start, period_end, previous_balance, purchases_amount,
		       payments_amount, interest_charged, fees_charged, ending_balance,
		       minimum_payment_due, due_date, is_current, created_at
		FROM credit_card_statements
		WHERE account_id = $1
		ORDER BY period_end DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CreditCardStore) InsertScheduledPayment(ctx context.Context, tx Execer, input ScheduledPayment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scheduled_payments (id, account_id, statement_id, bank_account_id, scheduled_date, payment_type, payment_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.AccountID, input.StatementID, input.BankAccountID,
		input.ScheduledDate, input.PaymentType, input.PaymentAmount, PaymentScheduled)
	return err
}

func (s *CreditCardStore) GetScheduledPaymentForUpdate(ctx context.Context, tx Getter, paymentID string) (ScheduledPayment, error) {
	var row ScheduledPayment
	err := tx.GetContext(ctx, &row, `
		SELECT id, account_id, statement_id, bank_account_id, scheduled_date, payment_type,
		       payment_amount, status, actual_amount_paid, created_at
		FROM scheduled_payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID)
	if err != nil {
		return ScheduledPayment{}, err
	}
	return row, nil
}

func (s *CreditCardStore) ListDuePayments(ctx context.Context, accountID string, asOf time.Time) ([]ScheduledPayment, error) {
	var rows []ScheduledPayment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, statement_id, bank_account_id, scheduled_date, payment_type,
		       payment_amount, status, actual_amount_paid, created_at
		FROM scheduled_payments
		WHERE account_id = $1 AND status = 'scheduled' AND scheduled_date <= $2
		ORDER BY scheduled_date
	`, accountID, asOf)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SettleScheduledPayment completes a scheduled payment. The status guard
// makes double execution a no-op at the store level.
func (s *CreditCardStore) SettleScheduledPayment(ctx context.Context, tx Execer, paymentID string, actualAmount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE scheduled_payments SET status = $1, actual_amount_paid = $2
		WHERE id = $3 AND status = $4
	`, PaymentCompleted, actualAmount, paymentID, PaymentScheduled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *CreditCardStore) CancelScheduledPayment(ctx context.Context, tx Execer, paymentID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE scheduled_payments SET status = $1
		WHERE id = $2 AND status = $3
	`, PaymentCancelled, paymentID, PaymentScheduled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
