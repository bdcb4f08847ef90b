package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	"github.com/matheuslopes/garimpei-backend/internal/attribution"
	"github.com/matheuslopes/garimpei-backend/internal/partners"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

type createPartnerRequest struct {
	Slug          string `json:"slug" validate:"required,min=2,max=64"`
	Name          string `json:"name" validate:"required,min=2,max=140"`
	CommissionBps int    `json:"commission_bps" validate:"min=0,max=10000"`
}

func PartnerCreate(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPartnerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partner, err := svc.Create(r.Context(), partners.CreateInput{
			Slug:          req.Slug,
			Name:          req.Name,
			CommissionBps: req.CommissionBps,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, partner)
	}
}

// PartnerClick registers a referral click for the slug. Public, fire and
// forget from the storefront's point of view.
func PartnerClick(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := validators.SanitizeString(chi.URLParam(r, "slug"), 64)

		var referrer *string
		if ref := validators.SanitizeString(r.Header.Get("Referer"), 500); ref != "" {
			referrer = &ref
		}
		var ipHash *string
		if hashed := hashClientIP(r); hashed != "" {
			ipHash = &hashed
		}

		if err := svc.RegisterClick(r.Context(), partners.ClickInput{
			Slug:     slug,
			Referrer: referrer,
			IPHash:   ipHash,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

// PartnerStats reports clicks, attributed orders, and commission totals.
func PartnerStats(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.PartnerStats(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

type partnerToggleRequest struct {
	Value  bool   `json:"value"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func PartnerSetActive(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req partnerToggleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetActive(r.Context(), actorFromContext(r), id, req.Value, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"partner_id": id, "active": req.Value})
	}
}

func PartnerSetPayoutBlocked(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req partnerToggleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetPayoutBlocked(r.Context(), actorFromContext(r), id, req.Value, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"partner_id": id, "payout_blocked": req.Value})
	}
}

// hashClientIP stores only a digest of the caller address; raw IPs never
// reach the database.
func hashClientIP(r *http.Request) string {
	addr := r.Header.Get("X-Forwarded-For")
	if addr != "" {
		addr = strings.TrimSpace(strings.Split(addr, ",")[0])
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		addr = host
	}
	if addr == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])
}
