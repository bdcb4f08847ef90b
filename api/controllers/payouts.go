package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/api/middleware"
	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	"github.com/matheuslopes/garimpei-backend/internal/payouts"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
)

type requestPayoutRequest struct {
	Scope       string     `json:"scope" validate:"required,oneof=user partner"`
	PartnerID   *uuid.UUID `json:"partner_id,omitempty"`
	AmountCents int64      `json:"amount_cents" validate:"required,min=1"`
	Currency    string     `json:"currency" validate:"required,len=3"`
	PixKey      string     `json:"pix_key" validate:"required,max=140"`
	PixKeyType  string     `json:"pix_key_type" validate:"required"`
	Speed       string     `json:"speed" validate:"omitempty,oneof=standard instant"`
}

// PayoutRequest opens a payout for the caller's balance. Partner-scope
// requests name the partner account being drained.
func PayoutRequest(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope := enums.PayoutScope(req.Scope)
		callerID := middleware.UserIDFromContext(r.Context())

		input := payouts.RequestInput{
			Scope:       scope,
			AmountCents: req.AmountCents,
			Currency:    enums.Currency(req.Currency),
			PixKey:      req.PixKey,
			PixKeyType:  enums.PixKeyType(req.PixKeyType),
			Speed:       enums.PayoutSpeed(req.Speed),
		}
		switch scope {
		case enums.PayoutScopePartner:
			if req.PartnerID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "partner_id is required for partner scope"))
				return
			}
			input.PartnerID = req.PartnerID
			input.UserID = &callerID
		default:
			input.UserID = &callerID
		}

		payout, err := svc.Request(r.Context(), actorFromContext(r), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

func PayoutGet(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

type verifyPayoutRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// PayoutVerify checks the delivered confirmation code.
func PayoutVerify(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req verifyPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.Verify(r.Context(), id, req.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// PayoutExecute debits the balance and submits the transfer to the rail.
func PayoutExecute(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.Execute(r.Context(), actorFromContext(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

type rejectPayoutRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func PayoutReject(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rejectPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.Reject(r.Context(), actorFromContext(r), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

func PayoutCancel(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.Cancel(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

func actorFromContext(r *http.Request) *outbox.ActorRef {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: userID,
		Role:   string(middleware.RoleFromContext(r.Context())),
	}
}
