package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

type contextKey string

const sessionKey contextKey = "session"

const browserCookieMaxAge = 30 * 24 * 60 * 60

type SessionOptions struct {
	CookieName string
	Secure     bool
}

// Middleware attaches a models.Session to every request. Anonymous visitors
// get a browser key cookie so a pending intent can follow them through login.
// A bearer token that fails verification is treated as absent.
func Middleware(verifier TokenVerifier, opts SessionOptions, log *logger.Logger) func(http.Handler) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = "rsv_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := models.Session{BrowserKey: browserKey(w, r, opts)}

			if rawToken, err := ExtractTokenFromRequest(r); err == nil {
				claims, err := verifier.Verify(r.Context(), rawToken)
				if err != nil {
					log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				} else {
					session.UserID = claims.Subject
					session.Token = rawToken
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func browserKey(w http.ResponseWriter, r *http.Request, opts SessionOptions) string {
	if c, err := r.Cookie(opts.CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     opts.CookieName,
		Value:    key,
		Path:     "/",
		MaxAge:   browserCookieMaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

// RequireUser rejects requests without a verified user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request's session, or an empty one.
func FromContext(ctx context.Context) models.Session {
	if s, ok := ctx.Value(sessionKey).(models.Session); ok {
		return s
	}
	return models.Session{}
}
