package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"

	"github.com/go-chi/chi/v5"
)

type cardConfigRequest struct {
	CreditLimit             string `json:"credit_limit"`
	APR                     string `json:"apr"`
	WarningThresholdPercent int    `json:"warning_threshold_percent"`
	InterestType            string `json:"interest_type"`
	CompoundingFrequency    string `json:"compounding_frequency"`
	StatementDayOfMonth     int    `json:"statement_day_of_month"`
	DueDateOffsetDays       int    `json:"due_date_offset_days"`
	GracePeriodDays         int    `json:"grace_period_days"`
	MinimumPaymentPercent   string `json:"minimum_payment_percent"`
	MinimumPaymentFlat      string `json:"minimum_payment_flat"`
	AutoPaymentEnabled      bool   `json:"auto_payment_enabled"`
	AutoPaymentType         string `json:"auto_payment_type"`
	AutoPaymentAmount       string `json:"auto_payment_amount"`
}

func (h *Handler) ConfigureCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req cardConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	creditLimit, err := parseAmountMinor(req.CreditLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	flat := int64(0)
	if req.MinimumPaymentFlat != "" {
		if flat, err = parseAmountMinor(req.MinimumPaymentFlat); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	autoAmount := int64(0)
	if req.AutoPaymentAmount != "" {
		if autoAmount, err = parseAmountMinor(req.AutoPaymentAmount); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	configID, err := h.cards.Configure(r.Context(), userID, services.CardConfigRequest{
		LedgerID:                chi.URLParam(r, "ledgerID"),
		AccountID:               chi.URLParam(r, "accountID"),
		CreditLimit:             creditLimit,
		APR:                     req.APR,
		WarningThresholdPercent: req.WarningThresholdPercent,
		InterestType:            req.InterestType,
		CompoundingFrequency:    req.CompoundingFrequency,
		StatementDayOfMonth:     req.StatementDayOfMonth,
		DueDateOffsetDays:       req.DueDateOffsetDays,
		GracePeriodDays:         req.GracePeriodDays,
		MinimumPaymentPercent:   req.MinimumPaymentPercent,
		MinimumPaymentFlat:      flat,
		AutoPaymentEnabled:      req.AutoPaymentEnabled,
		AutoPaymentType:         req.AutoPaymentType,
		AutoPaymentAmount:       autoAmount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"config_id": configID})
}

func (h *Handler) CardSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.cards.Summary(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type cardPurchaseRequest struct {
	CategoryID  string `json:"category_id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func (h *Handler) CardPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req cardPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	transactionID, err := h.cards.PostPurchase(r.Context(), userID, services.PurchaseRequest{
		LedgerID:      chi.URLParam(r, "ledgerID"),
		CardAccountID: chi.URLParam(r, "accountID"),
		CategoryID:    req.CategoryID,
		Amount:        amount,
		Date:          date,
		Description:   req.Description,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID})
}

type cardPaymentRequest struct {
	BankAccountID string `json:"bank_account_id"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Description   string `json:"description"`
}

func (h *Handler) CardPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req cardPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	transactionID, err := h.cards.PostPayment(r.Context(), userID, services.CardPaymentRequest{
		LedgerID:      chi.URLParam(r, "ledgerID"),
		CardAccountID: chi.URLParam(r, "accountID"),
		BankAccountID: req.BankAccountID,
		Amount:        amount,
		Date:          date,
		Description:   req.Description,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID})
}

type generateStatementRequest struct {
	AsOf string `json:"as_of"`
}

func (h *Handler) GenerateStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req generateStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	statement, err := h.cards.GenerateStatement(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), asOf)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, statement)
}

func (h *Handler) ListStatements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	statements, err := h.cards.ListStatements(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), queryInt(r, "limit", 12))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"statements": statements})
}

type schedulePaymentRequest struct {
	BankAccountID string  `json:"bank_account_id"`
	StatementID   *string `json:"statement_id"`
	ScheduledDate string  `json:"scheduled_date"`
	PaymentType   string  `json:"payment_type"`
	PaymentAmount string  `json:"payment_amount"`
}

func (h *Handler) SchedulePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req schedulePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	scheduledDate, err := parseDate(req.ScheduledDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount := int64(0)
	if req.PaymentAmount != "" {
		if amount, err = parseAmountMinor(req.PaymentAmount); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	paymentID, err := h.cards.SchedulePayment(r.Context(), userID, services.SchedulePaymentRequest{
		LedgerID:      chi.URLParam(r, "ledgerID"),
		CardAccountID: chi.URLParam(r, "accountID"),
		BankAccountID: req.BankAccountID,
		StatementID:   req.StatementID,
		ScheduledDate: scheduledDate,
		PaymentType:   req.PaymentType,
		PaymentAmount: amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"payment_id": paymentID})
}

func (h *Handler) ListDuePayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	payments, err := h.cards.ListDuePayments(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), asOf)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) ExecuteScheduledPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	paid, err := h.cards.ExecuteScheduledPayment(r.Context(), userID,
		chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), chi.URLParam(r, "paymentID"), time.Now().UTC())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"paid_minor": paid})
}

func (h *Handler) CancelScheduledPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.cards.CancelScheduledPayment(r.Context(), userID,
		chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), chi.URLParam(r, "paymentID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
