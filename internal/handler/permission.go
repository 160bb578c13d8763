package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
)

type PermissionHandler struct {
	perms  *store.PermissionStore
	audit  *store.AuditStore
	logger *slog.Logger
}

func NewPermissionHandler(ps *store.PermissionStore, as *store.AuditStore, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{perms: ps, audit: as, logger: logger}
}

func (h *PermissionHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.perms.ListRoles()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	writeJSON(w, http.StatusOK, roles)
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *PermissionHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.ToLower(strings.TrimSpace(req.Name))
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	role, err := h.perms.CreateRole(req.Name, req.Description)
	if err != nil {
		h.logger.Error("create role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create role")
		return
	}

	h.audit.Record(r.Context(), "create", "role", role.ID, map[string]any{"name": role.Name})
	writeJSON(w, http.StatusCreated, role)
}

func (h *PermissionHandler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	roleID, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	role, err := h.perms.GetRoleByID(roleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get role")
		return
	}
	if role == nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}

	perms, err := h.perms.ListByRole(roleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	if perms == nil {
		perms = []model.Permission{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}

type permissionEntry struct {
	Section   string `json:"section"`
	CanCreate bool   `json:"can_create"`
	CanRead   bool   `json:"can_read"`
	CanUpdate bool   `json:"can_update"`
	CanDelete bool   `json:"can_delete"`
}

type updateMatrixRequest struct {
	Permissions []permissionEntry `json:"permissions"`
}

func (h *PermissionHandler) UpdateMatrix(w http.ResponseWriter, r *http.Request) {
	roleID, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	role, err := h.perms.GetRoleByID(roleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get role")
		return
	}
	if role == nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}
	if role.IsSystem && role.Name == "admin" {
		writeError(w, http.StatusBadRequest, "admin role cannot be modified")
		return
	}

	var req updateMatrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	for _, p := range req.Permissions {
		if strings.TrimSpace(p.Section) == "" {
			writeError(w, http.StatusBadRequest, "section is required")
			return
		}
		if err := h.perms.Upsert(roleID, p.Section, p.CanCreate, p.CanRead, p.CanUpdate, p.CanDelete); err != nil {
			h.logger.Error("upsert permission", "role_id", roleID, "section", p.Section, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update permissions")
			return
		}
	}

	h.audit.Record(r.Context(), "update", "role", roleID, map[string]any{"name": role.Name, "sections": len(req.Permissions)})

	perms, err := h.perms.ListByRole(roleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}
