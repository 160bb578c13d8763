package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mbstudio/backstage/internal/auth"
	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/notify"
	"github.com/mbstudio/backstage/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	push          *notify.Service
	logger        *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, push *notify.Service, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: ns, push: push, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	notifs, err := h.notifications.ListByUser(userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifs == nil {
		notifs = []model.UserNotification{}
	}

	unread, err := h.notifications.UnreadCount(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifs, "unread_count": unread})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.notifications.MarkRead(id, auth.UserID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(auth.UserID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey tells browsers which application server key to subscribe with.
func (h *NotificationHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeError(w, http.StatusServiceUnavailable, "push notifications not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.push.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint and keys are required")
		return
	}

	if err := h.notifications.SaveSubscription(auth.UserID(r.Context()), req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		h.logger.Error("save push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.notifications.DeleteSubscription(req.Endpoint); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
