package api

import (
	"net/http"

	"github.com/faqbase/faqbot/internal/knowledge"
	"github.com/faqbase/faqbot/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  *knowledge.Store
	logger log.Logger
}

// NewHealthHandler creates a health handler. store is used for
// readiness checks.
func NewHealthHandler(store *knowledge.Store, logger log.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK if the vector store is reachable and the
// collection resolves.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "knowledge store not configured", http.StatusServiceUnavailable)
		return
	}
	if _, err := h.store.EnsureCollection(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "vector store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
