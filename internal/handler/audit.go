package handler

import (
	"net/http"
	"strconv"

	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
)

type AuditHandler struct {
	audit *store.AuditStore
}

func NewAuditHandler(as *store.AuditStore) *AuditHandler {
	return &AuditHandler{audit: as}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.AuditFilter{
		EntityType: r.URL.Query().Get("entity_type"),
		Action:     r.URL.Query().Get("action"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}

	entries, err := h.audit.List(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []model.AuditLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := r.PathValue("type")
	entityID := r.PathValue("id")
	if entityType == "" || entityID == "" {
		writeError(w, http.StatusBadRequest, "entity type and id are required")
		return
	}

	entries, err := h.audit.ListByEntity(entityType, entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []model.AuditLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}
