package api

import (
	"io"
	"net/http"

	"coinledger/models"
	"coinledger/service"

	"github.com/go-chi/chi/v5"
)

// Headers read from terminal webhooks
const (
	SignatureHeader = "X-Signature"
	EventIDHeader   = "X-Event-Id"
)

// TerminalWebhook handles POST /api/v1/webhooks/terminal. Applied, duplicate
// and rejected events all answer 200 so the terminal stops retrying; only
// internal failures answer 5xx.
func (h *Handler) TerminalWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read body")
		return
	}

	result, err := h.svc.Ingest.Ingest(r.Context(), service.IngestRequest{
		Source:     models.EventSourceTerminalWebhook,
		ExternalID: r.Header.Get(EventIDHeader),
		Payload:    payload,
		Signature:  r.Header.Get(SignatureHeader),
	})
	if err != nil {
		writeServiceError(w, r, "terminal_webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type bindTerminalRequest struct {
	AccountID int64 `json:"account_id" validate:"gt=0"`
}

// BindTerminal handles PUT /api/v1/terminals/{machineID}
func (h *Handler) BindTerminal(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineID")
	if machineID == "" || len(machineID) > 128 {
		writeBadRequest(w, "invalid machineID in path")
		return
	}

	var req bindTerminalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.svc.Ingest.BindTerminal(r.Context(), machineID, req.AccountID); err != nil {
		writeServiceError(w, r, "bind_terminal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"machine_id": machineID, "account_id": req.AccountID})
}

// PollQueue handles POST /api/v1/queue/poll
func (h *Handler) PollQueue(w http.ResponseWriter, r *http.Request) {
	if h.svc.Poller == nil {
		writeError(w, http.StatusServiceUnavailable, KindStorageUnavailable, "no queue backend configured")
		return
	}

	result, err := h.svc.Poller.PollOnce(r.Context())
	if err != nil {
		writeServiceError(w, r, "poll_queue", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
