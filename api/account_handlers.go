package api

import (
	"net/http"

	"coinledger/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// GetStatus handles GET /api/v1/accounts/{accountID}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathInt64(r, "accountID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	businessID, err := queryInt64(r, "business_id", models.PlatformBusinessID)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	status, err := h.svc.Status.GetStatus(r.Context(), accountID, businessID)
	if err != nil {
		writeServiceError(w, r, "get_status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetTransactions handles GET /api/v1/accounts/{accountID}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathInt64(r, "accountID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	limit, err := queryInt64(r, "limit", defaultHistoryLimit)
	if err != nil || limit == 0 || limit > maxHistoryLimit {
		writeBadRequest(w, "limit must be between 1 and 500")
		return
	}

	txs, err := h.svc.Ledger.History(r.Context(), accountID, int(limit))
	if err != nil {
		writeServiceError(w, r, "get_transactions", err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

type accountBusinessRequest struct {
	AccountID  int64 `json:"account_id" validate:"gt=0"`
	BusinessID int64 `json:"business_id" validate:"gt=0"`
}

// CastVote handles POST /api/v1/votes
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req accountBusinessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.svc.Votes.CastVote(r.Context(), req.AccountID, req.BusinessID)
	if err != nil {
		writeServiceError(w, r, "cast_vote", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RefreshInsight handles POST /api/v1/insights/refresh
func (h *Handler) RefreshInsight(w http.ResponseWriter, r *http.Request) {
	var req accountBusinessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	remaining, err := h.svc.Quota.ConsumeInsight(r.Context(), req.AccountID, req.BusinessID)
	if err != nil {
		writeServiceError(w, r, "refresh_insight", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "insights_remaining": remaining})
}
