package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	"github.com/matheuslopes/garimpei-backend/internal/users"
	"github.com/matheuslopes/garimpei-backend/internal/wallet"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

type adjustBalanceRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required"`
	Currency    string    `json:"currency" validate:"required,len=3"`
	Reason      string    `json:"reason" validate:"required,min=3,max=500"`
}

// AdminAdjustBalance writes a manual correction entry against a wallet.
func AdminAdjustBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustBalanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Adjust(r.Context(), actorFromContext(r), wallet.AdjustInput{
			UserID:      req.UserID,
			AmountCents: req.AmountCents,
			Currency:    enums.Currency(req.Currency),
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type userToggleRequest struct {
	Value  bool   `json:"value"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func AdminSetUserBlocked(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req userToggleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetBlocked(r.Context(), actorFromContext(r), id, req.Value, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": id, "blocked": req.Value})
	}
}

func AdminSetUserPayoutBlocked(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req userToggleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetPayoutBlocked(r.Context(), actorFromContext(r), id, req.Value, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": id, "payout_blocked": req.Value})
	}
}
