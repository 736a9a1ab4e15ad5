package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestExtractTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(req)
	assert.ErrorIs(t, err, ErrNoToken)

	req.Header.Set("Authorization", "bearer abc")
	token, err := ExtractTokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	req.Header.Set("Authorization", "Basic abc")
	_, err = ExtractTokenFromRequest(req)
	assert.Error(t, err)
}

func TestParseUnverifiedRequiresSubject(t *testing.T) {
	claims, err := parseUnverified(signedToken(t, jwt.MapClaims{"sub": "user-42"}))
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.True(t, claims.ExpiresAt.IsZero())

	_, err = parseUnverified(signedToken(t, jwt.MapClaims{"name": "no subject"}))
	assert.Error(t, err)

	_, err = parseUnverified("not.a.jwt")
	assert.Error(t, err)
}

func TestUnverifiedVerifierChecksExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	v := UnverifiedVerifier{Now: func() time.Time { return now }}

	claims, err := v.Verify(context.Background(), signedToken(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(time.Hour).Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(now.Add(time.Hour)))

	_, err = v.Verify(context.Background(), signedToken(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()}))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	args := m.Called(ctx, rawToken)
	return args.Get(0).(Claims), args.Error(1)
}

func TestCachedVerifierReusesResult(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Now()
	inner := new(MockVerifier)
	inner.On("Verify", mock.Anything, "tok").Return(Claims{Subject: "u1", ExpiresAt: now.Add(2 * time.Minute)}, nil).Once()

	cached := NewCachedVerifier(inner, client, 10*time.Minute)
	for i := 0; i < 3; i++ {
		claims, err := cached.Verify(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
	}
	inner.AssertExpectations(t)

	ttl := mr.TTL(tokenKey("tok"))
	assert.LessOrEqual(t, ttl, 2*time.Minute, "cache entry never outlives the token")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCachedVerifierDoesNotCacheFailures(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := new(MockVerifier)
	inner.On("Verify", mock.Anything, "bad").Return(Claims{}, errors.New("bad signature")).Twice()

	cached := NewCachedVerifier(inner, client, 0)
	_, err = cached.Verify(context.Background(), "bad")
	assert.Error(t, err)
	_, err = cached.Verify(context.Background(), "bad")
	assert.Error(t, err)
	inner.AssertExpectations(t)
}

func serveWithSession(t *testing.T, verifier TokenVerifier, req *http.Request) (models.Session, *httptest.ResponseRecorder) {
	t.Helper()
	var got models.Session
	handler := Middleware(verifier, SessionOptions{CookieName: "rsv_session"}, logger.NewWithWriter(io.Discard))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		}),
	)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec
}

func TestMiddlewareIssuesBrowserKey(t *testing.T) {
	session, rec := serveWithSession(t, UnverifiedVerifier{}, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, session.Authenticated())
	require.NotEmpty(t, session.BrowserKey)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.BrowserKey, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestMiddlewareKeepsExistingBrowserKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "rsv_session", Value: "0b6c4a3e-7d0f-4c1e-9a57-2f4f0f0b9b11"})

	session, rec := serveWithSession(t, UnverifiedVerifier{}, req)

	assert.Equal(t, "0b6c4a3e-7d0f-4c1e-9a57-2f4f0f0b9b11", session.BrowserKey)
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddlewareAuthenticatesBearer(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-7", "exp": time.Now().Add(time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	session, _ := serveWithSession(t, UnverifiedVerifier{}, req)

	assert.True(t, session.Authenticated())
	assert.Equal(t, "user-7", session.UserID)
	assert.Equal(t, token, session.Token)
}

func TestMiddlewareTreatsRejectedTokenAsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	session, _ := serveWithSession(t, UnverifiedVerifier{}, req)

	assert.False(t, session.Authenticated())
	assert.NotEmpty(t, session.BrowserKey)
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSession(req.Context(), models.Session{UserID: "u1", Token: "tok"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
