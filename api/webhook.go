package api

import (
	"io"
	"net/http"

	"github.com/faqbase/faqbot/internal/log"
	"github.com/faqbase/faqbot/internal/pipeline"
	"github.com/faqbase/faqbot/internal/webhook"
)

// maxWebhookBody bounds the inbound payload size.
const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookHandler handles the inbound Chatwoot webhook.
type WebhookHandler struct {
	pipeline *pipeline.Pipeline
	logger   log.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(p *pipeline.Pipeline, logger log.Logger) *WebhookHandler {
	return &WebhookHandler{pipeline: p, logger: logger}
}

// RegisterRoutes registers webhook routes on the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/webhook", h.handle)
	mux.HandleFunc("GET /api/webhook", h.probe)
}

// handle runs the reply pipeline for one payload. Every recognized case
// — skipped, rejected, replied, recovered, even lost — is acknowledged
// with 200 so the sender never retries; only a body-level parse failure
// returns 500.
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("reading webhook body failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "read_failed", "failed to read request body")
		return
	}

	payload, err := webhook.Parse(body)
	if err != nil {
		h.logger.Error("webhook body is not valid JSON", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "parse_failed", "failed to parse request body")
		return
	}

	result := h.pipeline.Handle(r.Context(), payload)
	writeJSON(w, h.logger, http.StatusOK, result)
}

// probe confirms the endpoint is reachable, for webhook configuration
// checks from the Chatwoot side.
func (h *WebhookHandler) probe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
