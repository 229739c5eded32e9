package handlers

import (
	"net/http"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// ListAuditLog returns the ledger's recorded actions, newest first. The
// ledger must belong to the caller; ownership is checked through the
// account listing path rather than a separate store call.
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ledgerID := chi.URLParam(r, "ledgerID")
	if _, err := h.ledger.ListAccounts(r.Context(), userID, ledgerID); err != nil {
		respondServiceError(w, err)
		return
	}
	records, err := h.audit.ListByLedger(r.Context(), ledgerID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit log")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": records})
}

// PurgeAuditLog trims action history past the configured retention
// window on demand; the background loop does the same on a daily tick.
func (h *Handler) PurgeAuditLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.cfg.AuditRetentionDays <= 0 {
		respondError(w, http.StatusConflict, "audit retention is disabled")
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -h.cfg.AuditRetentionDays)
	var purged int64
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		n, err := h.audit.PurgeOlderThan(r.Context(), tx, cutoff)
		purged = n
		return err
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "audit purge failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"purged": purged,
		"cutoff": cutoff.Format("2006-01-02"),
	})
}
