package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mbstudio/backstage/internal/store"
)

type HomeConfigHandler struct {
	config *store.HomeConfigStore
	audit  *store.AuditStore
	logger *slog.Logger
}

func NewHomeConfigHandler(cs *store.HomeConfigStore, as *store.AuditStore, logger *slog.Logger) *HomeConfigHandler {
	return &HomeConfigHandler{config: cs, audit: as, logger: logger}
}

// Sections is public. It backs the landing page, so it returns the grouped
// key/value map rather than raw rows.
func (h *HomeConfigHandler) Sections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.config.Sections()
	if err != nil {
		h.logger.Error("load home sections", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load configuration")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

type homeConfigRequest struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

func (h *HomeConfigHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req homeConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Section = strings.TrimSpace(req.Section)
	req.Key = strings.TrimSpace(req.Key)
	if req.Section == "" || req.Key == "" {
		writeError(w, http.StatusBadRequest, "section and key are required")
		return
	}

	if err := h.config.Set(req.Section, req.Key, req.Value); err != nil {
		h.logger.Error("set home config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}

	h.audit.Record(r.Context(), "update", "home_config", req.Section+"."+req.Key, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HomeConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")
	key := r.PathValue("key")
	if section == "" || key == "" {
		writeError(w, http.StatusBadRequest, "section and key are required")
		return
	}

	if err := h.config.Delete(section, key); err != nil {
		h.logger.Error("delete home config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete configuration")
		return
	}

	h.audit.Record(r.Context(), "delete", "home_config", section+"."+key, nil)
	w.WriteHeader(http.StatusNoContent)
}
