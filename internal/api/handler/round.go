package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/api/response"
	"github.com/kiranshivaraju/mockinterview/internal/interview"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// MaxAudioBytes bounds a single recorded answer.
const MaxAudioBytes = 25 << 20

// RoundService is the round lifecycle the round handlers drive.
type RoundService interface {
	Start(ctx context.Context, userID uuid.UUID) (*interview.StartResult, error)
	NextQuestion(ctx context.Context, userID uuid.UUID) (*interview.QuestionAudio, error)
	SubmitAnswer(ctx context.Context, userID uuid.UUID, questionID int64, ans interview.Answer) (*interview.SubmitResult, error)
	EndRound(ctx context.Context, userID uuid.UUID) (*models.RoundSummary, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*models.RoundSummary, error)
	Status(ctx context.Context, userID uuid.UUID) (*interview.StatusResult, error)
}

type noMoreQuestionsResponse struct {
	RoundStatus string `json:"round_status"`
	Message     string `json:"message"`
}

// NewStartRoundHandler returns an http.HandlerFunc for POST /api/round1/start.
func NewStartRoundHandler(svc RoundService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		res, err := svc.Start(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewQuestionAudioHandler returns an http.HandlerFunc for
// GET /api/round1/get-question-audio.
func NewQuestionAudioHandler(svc RoundService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		q, err := svc.NextQuestion(r.Context(), userID)
		if errors.Is(err, interview.ErrNoMoreQuestions) {
			response.JSON(w, noMoreQuestionsResponse{RoundStatus: "no_more_questions", Message: "No more questions"})
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, q)
	}
}

// NewSubmitAnswerHandler returns an http.HandlerFunc for
// POST /api/round1/submit-answer/{questionID}. The recording is the
// multipart field "audio".
func NewSubmitAnswerHandler(svc RoundService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
		if err != nil || questionID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "questionID must be a positive integer", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxAudioBytes+multipartOverhead)
		if err := r.ParseMultipartForm(MaxAudioBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Audio file is too large", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "AUDIO_REQUIRED", "Audio file required", nil)
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "AUDIO_REQUIRED", "Audio file required", nil)
			return
		}
		defer file.Close()

		audio, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Could not read audio file", nil)
			return
		}

		res, err := svc.SubmitAnswer(r.Context(), userID, questionID, interview.Answer{
			Audio:    audio,
			MIMEType: header.Header.Get("Content-Type"),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewEndRoundHandler returns an http.HandlerFunc for POST /api/round1/end-interview.
func NewEndRoundHandler(svc RoundService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		summary, err := svc.EndRound(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, summary)
	}
}

// NewSummaryHandler returns an http.HandlerFunc for GET /api/round1/summary.
func NewSummaryHandler(svc RoundService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		summary, err := svc.GetSummary(r.Context(), userID)
		if errors.Is(err, interview.ErrSummaryNotAvailable) {
			response.JSON(w, messageResponse{Message: "Summary not available"})
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, summary)
	}
}

// NewStatusHandler returns an http.HandlerFunc for
// GET /api/round1/get-interview-status.
func NewStatusHandler(svc RoundService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		status, err := svc.Status(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, status)
	}
}
