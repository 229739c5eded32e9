package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"

	"github.com/go-chi/chi/v5"
)

type templateRequest struct {
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Frequency       string `json:"frequency"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	AccountID       string `json:"account_id"`
	CategoryID      string `json:"category_id"`
	TransactionType string `json:"transaction_type"`
	AutoCreate      bool   `json:"auto_create"`
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := parseDate(req.EndDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		endDate = &parsed
	}
	templateID, err := h.recurring.CreateTemplate(r.Context(), userID, services.TemplateRequest{
		LedgerID:        chi.URLParam(r, "ledgerID"),
		Description:     req.Description,
		Amount:          amount,
		Frequency:       req.Frequency,
		StartDate:       startDate,
		EndDate:         endDate,
		AccountID:       req.AccountID,
		CategoryID:      req.CategoryID,
		TransactionType: req.TransactionType,
		AutoCreate:      req.AutoCreate,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"template_id": templateID})
}

func (h *Handler) ListDueTemplates(w http.ResponseWriter, r *http.Request) {
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
	templates, err := h.recurring.ListDue(r.Context(), userID, chi.URLParam(r, "ledgerID"), asOf)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *Handler) Materialize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.recurring.Materialize(r.Context(), userID,
		chi.URLParam(r, "ledgerID"), chi.URLParam(r, "templateID"), time.Now().UTC())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) MaterializeDue(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	results, err := h.recurring.MaterializeDue(r.Context(), userID, chi.URLParam(r, "ledgerID"), time.Now().UTC())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"materialized": results})
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) SetTemplateEnabled(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.recurring.SetEnabled(r.Context(), userID,
		chi.URLParam(r, "ledgerID"), chi.URLParam(r, "templateID"), req.Enabled); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	upcoming, err := h.recurring.Preview(r.Context(), userID,
		chi.URLParam(r, "ledgerID"), chi.URLParam(r, "templateID"), queryInt(r, "count", 6))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"upcoming": upcoming})
}
