package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	period, err := periodFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}
	statuses, err := h.budget.BudgetStatus(r.Context(), userID, chi.URLParam(r, "ledgerID"), period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"month":      period.String(),
		"categories": statuses,
	})
}

func (h *Handler) BudgetTotals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	period, err := periodFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}
	totals, err := h.budget.Totals(r.Context(), userID, chi.URLParam(r, "ledgerID"), period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"month":  period.String(),
		"totals": totals,
	})
}

func (h *Handler) OverspentCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	period, err := periodFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}
	overspent, err := h.budget.OverspentCategories(r.Context(), userID, chi.URLParam(r, "ledgerID"), period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"month":      period.String(),
		"categories": overspent,
	})
}

type assignRequest struct {
	CategoryID        string `json:"category_id"`
	Amount            string `json:"amount"`
	Month             string `json:"month"`
	AbortIfOverBudget bool   `json:"abort_if_over_budget"`
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	period, err := parseMonthOrNow(req.Month)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}
	result, err := h.budget.Assign(r.Context(), userID, services.AssignRequest{
		LedgerID:          chi.URLParam(r, "ledgerID"),
		CategoryID:        req.CategoryID,
		Amount:            amount,
		Period:            period,
		AbortIfOverBudget: req.AbortIfOverBudget,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if result.TransactionID == "" {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

type moveRequest struct {
	FromCategoryID string `json:"from_category_id"`
	ToCategoryID   string `json:"to_category_id"`
	Amount         string `json:"amount"`
	Date           string `json:"date"`
}

func (h *Handler) MoveMoney(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req moveRequest
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
	transactionID, err := h.budget.MoveMoney(r.Context(), userID, services.MoveRequest{
		LedgerID:       chi.URLParam(r, "ledgerID"),
		FromCategoryID: req.FromCategoryID,
		ToCategoryID:   req.ToCategoryID,
		Amount:         amount,
		Date:           date,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID})
}

type coverRequest struct {
	CategoryID       string `json:"category_id"`
	SourceCategoryID string `json:"source_category_id"`
	Amount           string `json:"amount"`
}

func (h *Handler) CoverOverspending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req coverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	transactionID, err := h.budget.CoverOverspending(r.Context(), userID, chi.URLParam(r, "ledgerID"), req.CategoryID, req.SourceCategoryID, amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID})
}

func parseMonthOrNow(raw string) (period dates.Month, err error) {
	if raw == "" {
		return dates.MonthOf(time.Now().UTC()), nil
	}
	return dates.ParseMonth(raw)
}
