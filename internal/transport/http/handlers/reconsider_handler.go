package handlers

import (
	"errors"
	"net/http"

	"github.com/milanapp/engine/internal/domain/enums"
	authsvc "github.com/milanapp/engine/internal/services/auth"
	reconsidersvc "github.com/milanapp/engine/internal/services/reconsider"
	"github.com/milanapp/engine/internal/transport/http/dto"
	httperrors "github.com/milanapp/engine/internal/transport/http/errors"
)

type ReconsiderHandler struct {
	service *reconsidersvc.Service
}

func NewReconsiderHandler(service *reconsidersvc.Service) *ReconsiderHandler {
	return &ReconsiderHandler{service: service}
}

func (h *ReconsiderHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "RECONSIDER_SERVICE_UNAVAILABLE", "reconsider service is unavailable")
		return
	}

	var payload dto.ReconsiderRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}
	kind, ok := enums.ParseRelationshipKind(payload.Kind)
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "kind must be one of interest, contact, block")
		return
	}

	result, err := h.service.Reconsider(r.Context(), identity.ProfileID, payload.OtherProfileID, kind)
	if err != nil {
		switch {
		case errors.Is(err, reconsidersvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid reconsider request")
		case errors.Is(err, reconsidersvc.ErrNothingToReconsider):
			writeConflict(w, "NOTHING_TO_RECONSIDER", "no reconsiderable decision toward this profile")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to reconsider")
		}
		return
	}

	response := dto.ReconsiderResponse{
		Kind:      string(result.Kind),
		Unblocked: result.Unblocked,
	}
	if result.RestoredInterest != nil {
		mapped := dto.MapInterest(*result.RestoredInterest)
		response.RestoredInterest = &mapped
	}
	if result.RestoredContact != nil {
		mapped := dto.MapContactRequest(*result.RestoredContact)
		response.RestoredContact = &mapped
	}

	httperrors.Write(w, http.StatusOK, response)
}
