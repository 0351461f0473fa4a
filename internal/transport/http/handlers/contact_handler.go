package handlers

import (
	"errors"
	"net/http"

	"github.com/milanapp/engine/internal/domain/model"
	authsvc "github.com/milanapp/engine/internal/services/auth"
	contactssvc "github.com/milanapp/engine/internal/services/contacts"
	quotasvc "github.com/milanapp/engine/internal/services/quota"
	"github.com/milanapp/engine/internal/transport/http/dto"
	httperrors "github.com/milanapp/engine/internal/transport/http/errors"
)

type ContactHandler struct {
	service *contactssvc.Service
}

func NewContactHandler(service *contactssvc.Service) *ContactHandler {
	return &ContactHandler{service: service}
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CONTACTS_SERVICE_UNAVAILABLE", "contacts service is unavailable")
		return
	}

	var payload dto.CreateContactRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	created, err := h.service.Request(r.Context(), identity.UserID, payload.ToUserID)
	if err != nil {
		writeContactError(w, err, "failed to create contact request")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.MapContactRequest(created))
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.ContactRequest, error) {
		return h.service.Get(r.Context(), id, profileID)
	}, "failed to load contact request")
}

func (h *ContactHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.ContactRequest, error) {
		return h.service.Approve(r.Context(), id, profileID)
	}, "failed to approve contact request")
}

func (h *ContactHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.ContactRequest, error) {
		return h.service.Decline(r.Context(), id, profileID)
	}, "failed to decline contact request")
}

func (h *ContactHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.ContactRequest, error) {
		return h.service.Cancel(r.Context(), id, profileID)
	}, "failed to cancel contact request")
}

func (h *ContactHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.ContactRequest, error) {
		return h.service.Revoke(r.Context(), id, profileID)
	}, "failed to revoke contact request")
}

func (h *ContactHandler) UndoDecline(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.ContactRequest, error) {
		return h.service.UndoDecline(r.Context(), id, profileID)
	}, "failed to undo decline")
}

func (h *ContactHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CONTACTS_SERVICE_UNAVAILABLE", "contacts service is unavailable")
		return
	}
	id, ok := idFromURL(r)
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "contact request id must be a positive integer")
		return
	}

	if err := h.service.MarkViewed(r.Context(), id, identity.ProfileID); err != nil {
		writeContactError(w, err, "failed to mark contact request viewed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) handle(w http.ResponseWriter, r *http.Request, op func(id, profileID int64) (model.ContactRequest, error), failMessage string) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CONTACTS_SERVICE_UNAVAILABLE", "contacts service is unavailable")
		return
	}
	id, ok := idFromURL(r)
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "contact request id must be a positive integer")
		return
	}

	record, err := op(id, identity.ProfileID)
	if err != nil {
		writeContactError(w, err, failMessage)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapContactRequest(record))
}

func writeContactError(w http.ResponseWriter, err error, failMessage string) {
	if tooFast, ok := contactssvc.IsTooFast(err); ok {
		writeTooFast(w, tooFast.RetryAfterSec)
		return
	}
	if quotaErr, ok := quotasvc.IsQuotaExceeded(err); ok {
		writeQuotaExceeded(w, quotaErr)
		return
	}

	switch {
	case errors.Is(err, contactssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid contact request")
	case errors.Is(err, contactssvc.ErrSelfRequest):
		writeBadRequest(w, "SELF_REFERENTIAL", "cannot request own contact details")
	case errors.Is(err, contactssvc.ErrNotFound), errors.Is(err, contactssvc.ErrNotParticipant):
		writeNotFound(w, "CONTACT_REQUEST_NOT_FOUND", "contact request not found")
	case errors.Is(err, contactssvc.ErrProfileNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
	case errors.Is(err, contactssvc.ErrAlreadyLive):
		writeConflict(w, "CONTACT_REQUEST_ALREADY_EXISTS", "a live contact request already targets this profile")
	case errors.Is(err, contactssvc.ErrBlockedPair):
		writeConflict(w, "PROFILE_BLOCKED", "an active block prevents this operation")
	case errors.Is(err, contactssvc.ErrInterestNotAccepted):
		writePreconditionFailed(w, "INTEREST_NOT_ACCEPTED", "an accepted interest is required before approving contact details")
	case errors.Is(err, contactssvc.ErrCascadeUndo):
		writeConflict(w, "CASCADE_DECLINE", "this request was declined by an interest decline; undo that decline instead")
	case errors.Is(err, contactssvc.ErrWrongActor):
		writeConflict(w, "WRONG_PARTY", "this party cannot perform the operation")
	case errors.Is(err, contactssvc.ErrWrongState):
		writeConflict(w, "INVALID_STATE", "the contact request state does not permit this operation")
	default:
		writeInternal(w, "INTERNAL_ERROR", failMessage)
	}
}
