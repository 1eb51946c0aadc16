// Package handler holds the HTTP handlers of the interview API. Handlers
// decode and validate input, call a service interface and translate
// service errors into the response envelope.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/ai"
	mw "github.com/kiranshivaraju/mockinterview/internal/api/middleware"
	"github.com/kiranshivaraju/mockinterview/internal/api/response"
	"github.com/kiranshivaraju/mockinterview/internal/auth"
	"github.com/kiranshivaraju/mockinterview/internal/interview"
	"github.com/kiranshivaraju/mockinterview/internal/resume"
	"github.com/kiranshivaraju/mockinterview/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// messageResponse is the body of endpoints that only report an outcome.
type messageResponse struct {
	Message string `json:"message"`
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing access token", nil)
		return uuid.Nil, false
	}
	return userID, true
}

// decodeJSON decodes the body into dst and runs struct validation. It writes
// the 400 response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", fieldErrors(verrs))
			return false
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			details[field] = field + " is required"
		case "email":
			details[field] = "must be a valid email address"
		case "min":
			details[field] = fmt.Sprintf("must be at least %s characters", fe.Param())
		case "max":
			details[field] = fmt.Sprintf("must be at most %s characters", fe.Param())
		default:
			details[field] = "is invalid"
		}
	}
	return details
}

// writeError maps service and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pwErr *auth.PasswordError
	switch {
	case errors.As(err, &pwErr):
		response.Error(w, http.StatusBadRequest, "WEAK_PASSWORD", pwErr.Reason, nil)
	case errors.Is(err, auth.ErrEmailTaken):
		response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType), errors.Is(err, auth.ErrTokenRevoked):
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)

	case errors.Is(err, resume.ErrUnsupportedFormat):
		response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported file format, use PDF or DOCX", nil)
	case errors.Is(err, resume.ErrNoText):
		response.Error(w, http.StatusBadRequest, "EMPTY_DOCUMENT", "No text content found in document", nil)
	case errors.Is(err, resume.ErrUnreadableDocument):
		response.Error(w, http.StatusBadRequest, "UNREADABLE_DOCUMENT", "Document could not be read", nil)
	case errors.Is(err, resume.ErrDocumentTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Resume file is too large", nil)

	case errors.Is(err, interview.ErrMissingResume):
		response.Error(w, http.StatusBadRequest, "RESUME_REQUIRED", "Upload a resume and job description first", nil)
	case errors.Is(err, interview.ErrMissingAudio):
		response.Error(w, http.StatusBadRequest, "AUDIO_REQUIRED", "Audio file required", nil)
	case errors.Is(err, interview.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Question does not belong to user", nil)
	case errors.Is(err, interview.ErrNotFound), errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, interview.ErrAlreadyAnswered):
		response.Error(w, http.StatusConflict, "ALREADY_ANSWERED", "Question already answered", nil)
	case errors.Is(err, interview.ErrRoundCompleted):
		response.Error(w, http.StatusConflict, "ROUND_COMPLETED", "Round already completed", nil)
	case errors.Is(err, interview.ErrRoundBusy):
		w.Header().Set("Retry-After", "1")
		response.Error(w, http.StatusConflict, "ROUND_BUSY", "Round is being updated, retry shortly", nil)
	case errors.Is(err, interview.ErrSpeechUnavailable):
		response.Error(w, http.StatusBadGateway, "SPEECH_UNAVAILABLE", "Speech service is not available", nil)
	case errors.Is(err, ai.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE", "The AI provider is not available", nil)
	case errors.Is(err, ai.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT", "The AI provider took too long to respond", nil)
	default:
		slog.Error("request failed",
			"request_id", mw.RequestID(r),
			"path", r.URL.Path,
			"error", err,
		)
		response.Internal(w)
	}
}
