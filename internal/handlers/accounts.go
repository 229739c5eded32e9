package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/money"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"
	"github.com/henriquedevops/pgbudget-sub003/internal/validator"

	"github.com/go-chi/chi/v5"
)

type accountRequest struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	IsGroup       bool    `json:"is_group"`
	IsCreditCard  bool    `json:"is_credit_card"`
	ParentGroupID *string `json:"parent_group_id"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.ledger.CreateAccount(r.Context(), userID, services.AccountRequest{
		LedgerID:      chi.URLParam(r, "ledgerID"),
		Name:          req.Name,
		Type:          req.Type,
		IsGroup:       req.IsGroup,
		IsCreditCard:  req.IsCreditCard,
		ParentGroupID: req.ParentGroupID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	payload := map[string]string{"account_id": created.AccountID}
	if created.PaymentCategoryID != "" {
		payload["payment_category_id"] = created.PaymentCategoryID
	}
	respondJSON(w, http.StatusCreated, payload)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.ledger.ListAccounts(r.Context(), userID, chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.ledger.DeleteAccount(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type groupRequest struct {
	GroupID *string `json:"group_id"`
}

func (h *Handler) SetCategoryGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.ledger.SetCategoryGroup(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), req.GroupID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		asOf = &parsed
	}
	balance, err := h.ledger.Balance(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), asOf)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balance_minor": balance,
		"balance":       money.FormatMinor(balance),
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.ledger.History(r.Context(), userID, chi.URLParam(r, "ledgerID"), chi.URLParam(r, "accountID"), queryInt(r, "limit", 50))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
