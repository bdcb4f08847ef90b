package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/matheuslopes/garimpei-backend/pkg/auth"
	"github.com/matheuslopes/garimpei-backend/pkg/config"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "garimpei-test",
	ExpirationMinutes: 5,
}

func authedRequest(t *testing.T, userID uuid.UUID, role enums.UserRole) *http.Request {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWTConfig, time.Now(), userID, role)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/wallet/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuth_ValidToken(t *testing.T) {
	userID := uuid.New()

	var gotUser uuid.UUID
	var gotRole enums.UserRole
	handler := Auth(testJWTConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, userID, enums.UserRoleSeller))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, enums.UserRoleSeller, gotRole)
}

func TestAuth_MissingHeader(t *testing.T) {
	handler := Auth(testJWTConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/summary", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_GarbageToken(t *testing.T) {
	handler := Auth(testJWTConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wallet/summary", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSecret(t *testing.T) {
	otherCfg := testJWTConfig
	otherCfg.Secret = "other-secret"
	token, err := pkgAuth.MintAccessToken(otherCfg, time.Now(), uuid.New(), enums.UserRoleBuyer)
	require.NoError(t, err)

	handler := Auth(testJWTConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wallet/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireCapability(t *testing.T) {
	handlerRan := false
	chain := Auth(testJWTConfig, nil)(
		RequireCapability(pkgAuth.CapAdminAdjust, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerRan = true
		})),
	)

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(t, uuid.New(), enums.UserRoleSeller))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, handlerRan)

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, authedRequest(t, uuid.New(), enums.UserRoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handlerRan)
}
