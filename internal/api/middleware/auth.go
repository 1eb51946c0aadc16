package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/api/response"
)

// AccessTokenCookie is the cookie the login handler stores the access token in.
const AccessTokenCookie = "access_token"

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	Authenticate(accessToken string) (uuid.UUID, error)
}

// Auth provides JWT authentication middleware.
type Auth struct {
	authenticator Authenticator
}

// NewAuth creates a new Auth middleware.
func NewAuth(a Authenticator) *Auth {
	return &Auth{authenticator: a}
}

// Authenticate validates the access token from the Authorization header or
// the access_token cookie and sets the user id in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing access token", nil)
			return
		}

		userID, err := a.authenticator.Authenticate(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired access token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), userID)))
	})
}

// Optional behaves like Authenticate but lets anonymous requests through.
// Logout uses it so that clearing cookies works with an expired token.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" {
			if userID, err := a.authenticator.Authenticate(token); err == nil {
				r = r.WithContext(SetUserID(r.Context(), userID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
