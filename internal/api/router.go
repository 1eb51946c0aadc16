package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/mockinterview/internal/api/middleware"
	"github.com/kiranshivaraju/mockinterview/internal/api/response"
	"github.com/kiranshivaraju/mockinterview/internal/speech"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	// AudioDir is served under /static/audio/. Empty disables the route.
	AudioDir string

	HealthHandler http.HandlerFunc

	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc
	RefreshHandler  http.HandlerFunc
	MeHandler       http.HandlerFunc
	LogoutHandler   http.HandlerFunc

	UploadResumeHandler http.HandlerFunc
	GetResumeHandler    http.HandlerFunc

	StartRoundHandler    http.HandlerFunc
	QuestionAudioHandler http.HandlerFunc
	SubmitAnswerHandler  http.HandlerFunc
	EndRoundHandler      http.HandlerFunc
	SummaryHandler       http.HandlerFunc
	StatusHandler        http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/auth/login", orNotImplemented(deps.LoginHandler))
	r.Post("/api/auth/refresh", orNotImplemented(deps.RefreshHandler))
	r.With(deps.Auth.Optional).Post("/api/auth/logout", orNotImplemented(deps.LogoutHandler))

	if deps.AudioDir != "" {
		files := http.StripPrefix(speech.AudioURLPrefix, filesOnly(http.FileServer(http.Dir(deps.AudioDir))))
		r.Handle(speech.AudioURLPrefix+"*", files)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/auth/me", orNotImplemented(deps.MeHandler))

		r.Post("/api/upload-resume", orNotImplemented(deps.UploadResumeHandler))
		r.Get("/api/get-resume-jd", orNotImplemented(deps.GetResumeHandler))

		r.Route("/api/round1", func(r chi.Router) {
			r.Post("/start", orNotImplemented(deps.StartRoundHandler))
			r.Get("/get-question-audio", orNotImplemented(deps.QuestionAudioHandler))
			r.Post("/submit-answer/{questionID}", orNotImplemented(deps.SubmitAnswerHandler))
			r.Post("/end-interview", orNotImplemented(deps.EndRoundHandler))
			r.Get("/summary", orNotImplemented(deps.SummaryHandler))
			r.Get("/get-interview-status", orNotImplemented(deps.StatusHandler))
		})
	})

	return r
}

// filesOnly hides directory listings; only individual files are served.
func filesOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
