package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/money"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"

	"github.com/go-chi/chi/v5"
)

type reconcileRequest struct {
	StatementDate    string `json:"statement_date"`
	StatementBalance string `json:"statement_balance"`
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	statementDate, err := parseDate(req.StatementDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Statement balances may legitimately be zero or negative.
	statementBalance, err := money.ParseMinor(req.StatementBalance)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid statement balance")
		return
	}
	result, err := h.reconcile.Reconcile(r.Context(), userID, services.ReconcileRequest{
		LedgerID:         chi.URLParam(r, "ledgerID"),
		AccountID:        chi.URLParam(r, "accountID"),
		StatementDate:    statementDate,
		StatementBalance: statementBalance,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) ReconcileHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	history, err := h.reconcile.History(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), queryInt(r, "limit", 20))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reconciliations": history})
}

type markClearedRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
}

func (h *Handler) MarkCleared(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req markClearedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cleared, err := h.reconcile.MarkCleared(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), req.TransactionIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}
