package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/api/middleware"
	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	"github.com/matheuslopes/garimpei-backend/internal/orders"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

type createOrderRequest struct {
	SellerID   uuid.UUID `json:"seller_id" validate:"required"`
	TotalCents int64     `json:"total_cents" validate:"required,min=1"`
	Currency   string    `json:"currency" validate:"required,len=3"`
	CouponCode *string   `json:"coupon_code,omitempty"`
	Txid       *string   `json:"txid,omitempty"`
}

func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), orders.CreateInput{
			BuyerID:    middleware.UserIDFromContext(r.Context()),
			SellerID:   req.SellerID,
			TotalCents: req.TotalCents,
			Currency:   enums.Currency(req.Currency),
			CouponCode: req.CouponCode,
			Txid:       req.Txid,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderConfirmDelivery releases the held escrow to the seller (and partner).
func OrderConfirmDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ConfirmDelivery(r.Context(), actorFromContext(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderOpenDispute(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.OpenDispute(r.Context(), actorFromContext(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type resolveDisputeRequest struct {
	Refund bool `json:"refund"`
}

// OrderResolveDispute settles a disputed order either way.
func OrderResolveDispute(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ResolveDispute(r.Context(), actorFromContext(r), id, req.Refund)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
