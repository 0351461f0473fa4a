package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/milanapp/engine/internal/services/auth"
	quotasvc "github.com/milanapp/engine/internal/services/quota"
	"github.com/milanapp/engine/internal/transport/http/dto"
	httperrors "github.com/milanapp/engine/internal/transport/http/errors"
)

type QuotaHandler struct {
	service *quotasvc.Service
}

func NewQuotaHandler(service *quotasvc.Service) *QuotaHandler {
	return &QuotaHandler{service: service}
}

func (h *QuotaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "QUOTA_SERVICE_UNAVAILABLE", "quota service is unavailable")
		return
	}

	snapshot, err := h.service.GetSnapshot(r.Context(), identity.ProfileID)
	if err != nil {
		if errors.Is(err, quotasvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid quota request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load quota")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.QuotaSnapshotResponse{
		Tier:             string(snapshot.Tier),
		ChatLimit:        snapshot.ChatLimit,
		ChatUsed:         snapshot.ChatUsed,
		ChatRemaining:    snapshot.ChatRemaining,
		ContactLimit:     snapshot.ContactLimit,
		ContactUsed:      snapshot.ContactUsed,
		ContactRemaining: snapshot.ContactRemaining,
	})
}
