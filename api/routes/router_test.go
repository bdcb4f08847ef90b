package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matheuslopes/garimpei-backend/pkg/config"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "garimpei-test", ExpirationMinutes: 5}
	return NewRouter(cfg, nil, nil, nil, nil, Services{})
}

func TestRouter_HealthLive(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "live")
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/wallet/summary"},
		{http.MethodGet, "/api/v1/payouts/11111111-1111-1111-1111-111111111111"},
		{http.MethodPost, "/api/admin/v1/wallet/adjust"},
	}
	for _, tc := range requests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Paths under the authenticated trees reveal nothing to anonymous
	// callers, not even whether the route exists.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
