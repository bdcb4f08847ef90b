package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	"github.com/matheuslopes/garimpei-backend/internal/coupons"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

// CouponValidate is the public endpoint storefronts call while the buyer
// types a code. It leaks no partner or usage data.
func CouponValidate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := validators.SanitizeString(chi.URLParam(r, "code"), 64)
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required"))
			return
		}
		public, err := svc.ValidateCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, public)
	}
}

type createCouponRequest struct {
	Code          string     `json:"code" validate:"required,min=2,max=64"`
	PartnerID     *uuid.UUID `json:"partner_id,omitempty"`
	DiscountBps   *int       `json:"discount_bps,omitempty"`
	DiscountCents *int64     `json:"discount_cents,omitempty"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	MaxUses       *int       `json:"max_uses,omitempty"`
}

// CouponCreate registers a coupon, optionally bound to a partner.
func CouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), coupons.CreateInput{
			Code:          req.Code,
			PartnerID:     req.PartnerID,
			DiscountBps:   req.DiscountBps,
			DiscountCents: req.DiscountCents,
			StartsAt:      req.StartsAt,
			EndsAt:        req.EndsAt,
			MaxUses:       req.MaxUses,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}
