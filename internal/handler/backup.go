package handler

import (
	"log/slog"
	"net/http"

	"github.com/mbstudio/backstage/internal/backup"
	"github.com/mbstudio/backstage/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	audit   *store.AuditStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, as *store.AuditStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, audit: as, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}

	key, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}

	h.audit.Record(r.Context(), "backup", "system", key, nil)
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}
