package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbstudio/backstage/internal/auth"
	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
)

type UserHandler struct {
	users  *store.UserStore
	perms  *store.PermissionStore
	audit  *store.AuditStore
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, ps *store.PermissionStore, as *store.AuditStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, perms: ps, audit: as, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Email == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "email and full_name are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	role, err := h.perms.GetRoleByID(req.RoleID)
	if err != nil || role == nil {
		writeError(w, http.StatusBadRequest, "invalid role_id")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.users.Create(req.Email, req.FullName, req.Phone, string(hash), req.RoleID)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.audit.Record(r.Context(), "create", "user", user.ID, map[string]any{"email": user.Email, "role": role.Name})
	writeJSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
	RoleID    string `json:"role_id"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		req.Email = existing.Email
	}
	if strings.TrimSpace(req.FullName) == "" {
		req.FullName = existing.FullName
	}
	if req.RoleID == "" {
		req.RoleID = existing.RoleID
	} else if role, err := h.perms.GetRoleByID(req.RoleID); err != nil || role == nil {
		writeError(w, http.StatusBadRequest, "invalid role_id")
		return
	}

	user, err := h.users.Update(id, req.Email, req.FullName, req.Phone, req.AvatarURL, req.RoleID)
	if err != nil {
		h.logger.Error("update user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	h.audit.Record(r.Context(), "update", "user", user.ID, map[string]any{"email": user.Email})
	writeJSON(w, http.StatusOK, user)
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if id == auth.UserID(r.Context()) {
		writeError(w, http.StatusBadRequest, "cannot deactivate yourself")
		return
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.users.SetActive(id, req.IsActive); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	action := "deactivate"
	if req.IsActive {
		action = "activate"
	}
	h.audit.Record(r.Context(), action, "user", id, map[string]any{"email": existing.Email})
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if id == auth.UserID(r.Context()) {
		writeError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.users.Delete(id); err != nil {
		h.logger.Error("delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	h.audit.Record(r.Context(), "delete", "user", id, map[string]any{"email": existing.Email})
	w.WriteHeader(http.StatusNoContent)
}
