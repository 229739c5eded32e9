package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"

	"github.com/go-chi/chi/v5"
)

type goalRequest struct {
	CategoryID   string `json:"category_id"`
	GoalType     string `json:"goal_type"`
	TargetAmount string `json:"target_amount"`
	TargetDate   string `json:"target_date"`
}

func (h *Handler) SetGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	targetAmount, err := parseAmountMinor(req.TargetAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var targetDate *time.Time
	if req.TargetDate != "" {
		parsed, err := parseDate(req.TargetDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		targetDate = &parsed
	}
	goalID, err := h.goals.SetGoal(r.Context(), userID, services.GoalRequest{
		LedgerID:     chi.URLParam(r, "ledgerID"),
		CategoryID:   req.CategoryID,
		GoalType:     req.GoalType,
		TargetAmount: targetAmount,
		TargetDate:   targetDate,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"goal_id": goalID})
}

func (h *Handler) ListGoalProgress(w http.ResponseWriter, r *http.Request) {
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
	progress, err := h.goals.ListProgress(r.Context(), userID, chi.URLParam(r, "ledgerID"), period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"month": period.String(),
		"goals": progress,
	})
}

func (h *Handler) GoalProgress(w http.ResponseWriter, r *http.Request) {
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
	progress, err := h.goals.Progress(r.Context(), userID,
		chi.URLParam(r, "ledgerID"), chi.URLParam(r, "categoryID"), period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}
