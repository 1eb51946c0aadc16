package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/mockinterview/internal/api/middleware"
	"github.com/kiranshivaraju/mockinterview/internal/api/response"
	"github.com/kiranshivaraju/mockinterview/internal/auth"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

const refreshTokenCookie = "refresh_token"

// AuthService is what the auth handlers depend on.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

// CookieConfig controls the token cookies set on login and refresh.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type"`
	User         *models.User `json:"user,omitempty"`
}

// NewRegisterHandler returns an http.HandlerFunc for POST /api/auth/register.
func NewRegisterHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		user, err := svc.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, user)
	}
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/auth/login.
// Tokens are returned in the body and as HttpOnly cookies.
func NewLoginHandler(svc AuthService, cookies CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		setCookie(w, mw.AccessTokenCookie, sess.AccessToken, cookies.AccessTTL, cookies.Secure)
		setCookie(w, refreshTokenCookie, sess.RefreshToken, cookies.RefreshTTL, cookies.Secure)
		response.JSON(w, tokenResponse{
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
			TokenType:    "bearer",
			User:         sess.User,
		})
	}
}

// NewRefreshHandler returns an http.HandlerFunc for POST /api/auth/refresh.
// The refresh token is read from the body first, then from its cookie.
func NewRefreshHandler(svc AuthService, cookies CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}
		token := req.RefreshToken
		if token == "" {
			if c, err := r.Cookie(refreshTokenCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing refresh token", nil)
			return
		}

		sess, err := svc.Refresh(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		setCookie(w, mw.AccessTokenCookie, sess.AccessToken, cookies.AccessTTL, cookies.Secure)
		response.JSON(w, tokenResponse{AccessToken: sess.AccessToken, TokenType: "bearer"})
	}
}

// NewMeHandler returns an http.HandlerFunc for GET /api/auth/me.
func NewMeHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, user)
	}
}

// NewLogoutHandler returns an http.HandlerFunc for POST /api/auth/logout.
// It always clears the cookies, with or without a valid session.
func NewLogoutHandler(svc AuthService, cookies CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := mw.GetUserID(r); ok {
			if err := svc.Logout(r.Context(), userID); err != nil {
				writeError(w, r, err)
				return
			}
		}
		clearCookie(w, mw.AccessTokenCookie, cookies.Secure)
		clearCookie(w, refreshTokenCookie, cookies.Secure)
		response.JSON(w, messageResponse{Message: "Logged out"})
	}
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
