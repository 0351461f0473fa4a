package handlers

import (
	"errors"
	"net/http"

	"github.com/milanapp/engine/internal/domain/enums"
	"github.com/milanapp/engine/internal/domain/model"
	"github.com/milanapp/engine/internal/pkg/validate"
	authsvc "github.com/milanapp/engine/internal/services/auth"
	interestssvc "github.com/milanapp/engine/internal/services/interests"
	quotasvc "github.com/milanapp/engine/internal/services/quota"
	"github.com/milanapp/engine/internal/transport/http/dto"
	httperrors "github.com/milanapp/engine/internal/transport/http/errors"
)

type InterestHandler struct {
	service *interestssvc.Service
}

func NewInterestHandler(service *interestssvc.Service) *InterestHandler {
	return &InterestHandler{service: service}
}

func (h *InterestHandler) Express(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERESTS_SERVICE_UNAVAILABLE", "interests service is unavailable")
		return
	}

	var payload dto.ExpressInterestRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	created, err := h.service.Express(r.Context(), identity.ProfileID, payload.ToProfileID)
	if err != nil {
		writeInterestError(w, err, "failed to express interest")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.MapInterest(created))
}

func (h *InterestHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.Interest, error) {
		return h.service.Get(r.Context(), id, profileID)
	}, "failed to load interest")
}

func (h *InterestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.Interest, error) {
		return h.service.Accept(r.Context(), id, profileID)
	}, "failed to accept interest")
}

func (h *InterestHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.Interest, error) {
		return h.service.Decline(r.Context(), id, profileID)
	}, "failed to decline interest")
}

func (h *InterestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.Interest, error) {
		return h.service.Cancel(r.Context(), id, profileID)
	}, "failed to cancel interest")
}

func (h *InterestHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.Interest, error) {
		return h.service.Revoke(r.Context(), id, profileID)
	}, "failed to revoke interest")
}

func (h *InterestHandler) UndoDecline(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id, profileID int64) (model.Interest, error) {
		return h.service.UndoDecline(r.Context(), id, profileID)
	}, "failed to undo decline")
}

func (h *InterestHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERESTS_SERVICE_UNAVAILABLE", "interests service is unavailable")
		return
	}
	id, ok := idFromURL(r)
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "interest id must be a positive integer")
		return
	}

	var payload dto.BlockInterestRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeBadRequest(w, "INVALID_REQUEST", "request body is not valid JSON")
			return
		}
	}

	params := interestssvc.BlockParams{ReportDescription: payload.ReportDescription}
	if validate.Required(payload.ReportReason) {
		reason, ok := enums.ParseReportReason(payload.ReportReason)
		if !ok {
			writeBadRequest(w, "INVALID_REQUEST", "unknown report reason")
			return
		}
		params.ReportReason = reason
	}

	blocked, err := h.service.Block(r.Context(), id, identity.ProfileID, params)
	if err != nil {
		writeInterestError(w, err, "failed to block")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapInterest(blocked))
}

func (h *InterestHandler) handle(w http.ResponseWriter, r *http.Request, op func(id, profileID int64) (model.Interest, error), failMessage string) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERESTS_SERVICE_UNAVAILABLE", "interests service is unavailable")
		return
	}
	id, ok := idFromURL(r)
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "interest id must be a positive integer")
		return
	}

	record, err := op(id, identity.ProfileID)
	if err != nil {
		writeInterestError(w, err, failMessage)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapInterest(record))
}

func writeInterestError(w http.ResponseWriter, err error, failMessage string) {
	if tooFast, ok := interestssvc.IsTooFast(err); ok {
		writeTooFast(w, tooFast.RetryAfterSec)
		return
	}
	if quotaErr, ok := quotasvc.IsQuotaExceeded(err); ok {
		writeQuotaExceeded(w, quotaErr)
		return
	}

	switch {
	case errors.Is(err, interestssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid interest request")
	case errors.Is(err, interestssvc.ErrSelfInterest):
		writeBadRequest(w, "SELF_REFERENTIAL", "cannot express interest in own profile")
	case errors.Is(err, interestssvc.ErrNotFound), errors.Is(err, interestssvc.ErrNotParticipant):
		writeNotFound(w, "INTEREST_NOT_FOUND", "interest not found")
	case errors.Is(err, interestssvc.ErrAlreadyLive):
		writeConflict(w, "INTEREST_ALREADY_EXISTS", "a live interest already connects these profiles")
	case errors.Is(err, interestssvc.ErrBlockedPair):
		writeConflict(w, "PROFILE_BLOCKED", "an active block prevents this operation")
	case errors.Is(err, interestssvc.ErrWrongActor):
		writeConflict(w, "WRONG_PARTY", "this party cannot perform the operation")
	case errors.Is(err, interestssvc.ErrWrongState):
		writeConflict(w, "INVALID_STATE", "the interest state does not permit this operation")
	default:
		writeInternal(w, "INTERNAL_ERROR", failMessage)
	}
}

func writeQuotaExceeded(w http.ResponseWriter, quotaErr *quotasvc.QuotaExceededError) {
	httperrors.Write(w, http.StatusConflict, httperrors.QuotaError{
		Code:      "QUOTA_EXCEEDED",
		Message:   "no " + string(quotaErr.Kind) + " slots remaining",
		SlotKind:  string(quotaErr.Kind),
		Limit:     quotaErr.Limit,
		ProfileID: quotaErr.ProfileID,
	})
}
