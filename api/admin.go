package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/faqbase/faqbot/internal/apperr"
	"github.com/faqbase/faqbot/internal/knowledge"
	"github.com/faqbase/faqbot/internal/log"
)

// defaultBrowseLimit caps document browsing when no limit is given.
const defaultBrowseLimit = 50

// AdminHandler handles collection and document administration.
type AdminHandler struct {
	store  *knowledge.Store
	logger log.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(store *knowledge.Store, logger log.Logger) *AdminHandler {
	return &AdminHandler{store: store, logger: logger}
}

// RegisterRoutes registers admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/collection", h.stats)
	mux.HandleFunc("POST /api/collection/reset", h.reset)
	mux.HandleFunc("GET /api/documents", h.browse)
	mux.HandleFunc("POST /api/documents", h.addDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.getDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.deleteDocument)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, stats)
}

func (h *AdminHandler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("collection reset via admin endpoint")
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *AdminHandler) browse(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultBrowseLimit)
	offset := queryInt(r, "offset", 0)

	where, err := queryWhere(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_where", "where must be a JSON object of metadata filters")
		return
	}

	docs, err := h.store.Browse(r.Context(), where, limit, offset)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"documents": docs,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *AdminHandler) addDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	id, err := h.store.AddDocument(r.Context(), req.Text, req.Metadata)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, map[string]string{"id": id})
}

func (h *AdminHandler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

func (h *AdminHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeStoreError maps a store/validation failure to its HTTP status.
func (h *AdminHandler) writeStoreError(w http.ResponseWriter, err error) {
	status := apperr.StatusOf(err)
	h.logger.Error("admin operation failed", "status", status, "error", err)
	writeError(w, h.logger, status, string(apperr.KindOf(err)), err.Error())
}

// queryWhere parses the optional "where" query parameter, a JSON
// object of exact-match metadata filters, e.g. {"source":"faq.txt"}.
func queryWhere(r *http.Request) (map[string]any, error) {
	raw := r.URL.Query().Get("where")
	if raw == "" {
		return nil, nil
	}
	var where map[string]any
	if err := json.Unmarshal([]byte(raw), &where); err != nil {
		return nil, err
	}
	return where, nil
}

// queryInt reads a non-negative integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
