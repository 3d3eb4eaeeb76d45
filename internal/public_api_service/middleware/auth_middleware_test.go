package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser writes the authenticated user id.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, _ := r.Context().Value(AuthenticatedUserContextKey).(AuthenticatedUser)
	_, _ = w.Write([]byte(u.ID))
})

func serve(t *testing.T, h http.Handler, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(testSecret, testLogger())(echoUser)
	now := time.Now()

	t.Run("ValidToken", func(t *testing.T) {
		token, err := IssueToken(testSecret, "ops-console", nil, time.Hour, now)
		require.NoError(t, err)
		rr := serve(t, h, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ops-console", rr.Body.String())
	})

	t.Run("MissingHeader", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(t, h, "").Code)
	})

	t.Run("WrongScheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(t, h, "ApiKey abc").Code)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := IssueToken(testSecret, "ops-console", nil, time.Minute, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(t, h, "Bearer "+token).Code)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := IssueToken("other", "ops-console", nil, time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(t, h, "Bearer "+token).Code)
	})

	t.Run("NoneAlgorithmRejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(t, h, "Bearer "+token).Code)
	})
}

func TestRequirePermission(t *testing.T) {
	h := AuthMiddleware(testSecret, testLogger())(RequirePermission(PermissionBlockCallers, testLogger())(echoUser))
	now := time.Now()

	allowed, err := IssueToken(testSecret, "admin", []string{PermissionBlockCallers}, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(t, h, "Bearer "+allowed).Code)

	denied, err := IssueToken(testSecret, "viewer", []string{PermissionManageIntegrations}, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(t, h, "Bearer "+denied).Code)
}

func TestIssueToken_EmptySecret(t *testing.T) {
	_, err := IssueToken("", "x", nil, time.Hour, time.Now())
	assert.Error(t, err)
}
