package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/milanapp/engine/internal/domain/model"
	authsvc "github.com/milanapp/engine/internal/services/auth"
	"github.com/milanapp/engine/internal/transport/http/dto"
	httperrors "github.com/milanapp/engine/internal/transport/http/errors"
)

type NotificationStore interface {
	ListForProfile(ctx context.Context, profileID int64, limit int) ([]model.Notification, error)
}

type NotificationsHandler struct {
	store NotificationStore
}

func NewNotificationsHandler(store NotificationStore) *NotificationsHandler {
	return &NotificationsHandler{store: store}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.store == nil {
		writeInternal(w, "NOTIFICATIONS_UNAVAILABLE", "notifications are unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	items, err := h.store.ListForProfile(r.Context(), identity.ProfileID, limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load notifications")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapNotifications(items))
}
