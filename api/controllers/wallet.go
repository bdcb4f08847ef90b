package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/matheuslopes/garimpei-backend/api/middleware"
	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/internal/wallet"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
	"github.com/matheuslopes/garimpei-backend/pkg/pagination"
)

const maxEntriesPageSize = 100

// WalletSummary returns the caller's balance in their primary currency.
func WalletSummary(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		summary, err := svc.Summary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// WalletSummaries returns one summary per currency the caller holds.
func WalletSummaries(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		summaries, err := svc.Summaries(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"summaries": summaries})
	}
}

// WalletEntries lists the caller's ledger entries newest first.
func WalletEntries(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, maxEntriesPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := parseEntriesFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		entries, nextCursor, err := svc.Entries(r.Context(), userID, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"entries":     entries,
			"next_cursor": nextCursor,
		})
	}
}

func parseEntriesFilter(r *http.Request) (ledger.Filter, error) {
	var filter ledger.Filter

	if raw := strings.TrimSpace(r.URL.Query().Get("source")); raw != "" {
		source := enums.LedgerSource(raw)
		if !source.IsValid() {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "unknown source filter").WithDetails(map[string]any{"field": "source"})
		}
		filter.Source = &source
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "from must be RFC3339").WithDetails(map[string]any{"field": "from"})
		}
		filter.From = &from
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "to must be RFC3339").WithDetails(map[string]any{"field": "to"})
		}
		filter.To = &to
	}

	return filter, nil
}
