package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/ai"
	"github.com/kiranshivaraju/mockinterview/internal/interview"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock RoundService ---

type mockRoundService struct {
	err       error
	start     *interview.StartResult
	question  *interview.QuestionAudio
	submitted *interview.Answer
	submitQID int64
	summary   *models.RoundSummary
	status    *interview.StatusResult
}

func (m *mockRoundService) Start(context.Context, uuid.UUID) (*interview.StartResult, error) {
	return m.start, m.err
}

func (m *mockRoundService) NextQuestion(context.Context, uuid.UUID) (*interview.QuestionAudio, error) {
	return m.question, m.err
}

func (m *mockRoundService) SubmitAnswer(_ context.Context, _ uuid.UUID, qid int64, ans interview.Answer) (*interview.SubmitResult, error) {
	m.submitQID = qid
	m.submitted = &ans
	if m.err != nil {
		return nil, m.err
	}
	return &interview.SubmitResult{QuestionID: qid, Transcript: string(ans.Audio)}, nil
}

func (m *mockRoundService) EndRound(context.Context, uuid.UUID) (*models.RoundSummary, error) {
	return m.summary, m.err
}

func (m *mockRoundService) GetSummary(context.Context, uuid.UUID) (*models.RoundSummary, error) {
	return m.summary, m.err
}

func (m *mockRoundService) Status(context.Context, uuid.UUID) (*interview.StatusResult, error) {
	return m.status, m.err
}

// submitRoute mounts the submit handler on a chi router so URL params resolve.
func submitRoute(svc RoundService) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/round1/submit-answer/{questionID}", NewSubmitAnswerHandler(svc))
	return r
}

func TestStartRound(t *testing.T) {
	svc := &mockRoundService{start: &interview.StartResult{
		InterviewID: uuid.New(),
		RoundID:     uuid.New(),
		RoundStatus: models.RoundStatusInProgress,
		Questions:   []interview.QuestionView{{ID: 1, Text: "Tell me about Go."}},
	}}

	rec := httptest.NewRecorder()
	NewStartRoundHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, "in_progress", data["round_status"])
	assert.Len(t, data["questions"], 1)
}

func TestStartRound_RequiresResume(t *testing.T) {
	svc := &mockRoundService{err: interview.ErrMissingResume}

	rec := httptest.NewRecorder()
	NewStartRoundHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()))

	status, code := parseErr(t, rec)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "RESUME_REQUIRED", code)
}

func TestQuestionAudio(t *testing.T) {
	svc := &mockRoundService{question: &interview.QuestionAudio{QuestionID: 7, Text: "Why Go?", AudioURL: "/static/audio/q_7.wav"}}

	rec := httptest.NewRecorder()
	NewQuestionAudioHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, float64(7), data["question_id"])
	assert.Equal(t, "/static/audio/q_7.wav", data["audio_url"])
}

func TestQuestionAudio_NoMoreQuestions(t *testing.T) {
	svc := &mockRoundService{err: interview.ErrNoMoreQuestions}

	rec := httptest.NewRecorder()
	NewQuestionAudioHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, "no_more_questions", data["round_status"])
	assert.Equal(t, "No more questions", data["message"])
}

func TestSubmitAnswer_PassesAudio(t *testing.T) {
	svc := &mockRoundService{}
	req := multipartReq(t, "/api/round1/submit-answer/42", nil,
		formFile{field: "audio", name: "answer.webm", contentType: "audio/webm", data: []byte("spoken answer")})

	rec := httptest.NewRecorder()
	submitRoute(svc).ServeHTTP(rec, asUser(req, uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, "spoken answer", data["transcript"])
	assert.Equal(t, int64(42), svc.submitQID)
	require.NotNil(t, svc.submitted)
	assert.Equal(t, "audio/webm", svc.submitted.MIMEType)
}

func TestSubmitAnswer_InputErrors(t *testing.T) {
	svc := &mockRoundService{}

	t.Run("missing audio", func(t *testing.T) {
		req := multipartReq(t, "/api/round1/submit-answer/1", map[string]string{"note": "x"})
		rec := httptest.NewRecorder()
		submitRoute(svc).ServeHTTP(rec, asUser(req, uuid.New()))

		status, code := parseErr(t, rec)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "AUDIO_REQUIRED", code)
	})

	t.Run("bad question id", func(t *testing.T) {
		req := multipartReq(t, "/api/round1/submit-answer/abc", nil,
			formFile{field: "audio", name: "a.webm", data: []byte("x")})
		rec := httptest.NewRecorder()
		submitRoute(svc).ServeHTTP(rec, asUser(req, uuid.New()))

		status, code := parseErr(t, rec)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_REQUEST", code)
	})

	assert.Nil(t, svc.submitted)
}

func TestSubmitAnswer_ServiceErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{interview.ErrMissingAudio, http.StatusBadRequest, "AUDIO_REQUIRED"},
		{interview.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{interview.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{interview.ErrAlreadyAnswered, http.StatusConflict, "ALREADY_ANSWERED"},
		{interview.ErrRoundCompleted, http.StatusConflict, "ROUND_COMPLETED"},
		{interview.ErrRoundBusy, http.StatusConflict, "ROUND_BUSY"},
		{interview.ErrSpeechUnavailable, http.StatusBadGateway, "SPEECH_UNAVAILABLE"},
		{ai.ErrInferenceTimeout, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.wantCode, func(t *testing.T) {
			svc := &mockRoundService{err: tc.err}
			req := multipartReq(t, "/api/round1/submit-answer/3", nil,
				formFile{field: "audio", name: "a.webm", data: []byte("x")})
			rec := httptest.NewRecorder()
			submitRoute(svc).ServeHTTP(rec, asUser(req, uuid.New()))

			status, code := parseErr(t, rec)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, code)
		})
	}
}

func TestEndRound(t *testing.T) {
	svc := &mockRoundService{summary: &models.RoundSummary{OverallScore: 82, Pass: true, EligibleForRound2: true}}

	rec := httptest.NewRecorder()
	NewEndRoundHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, float64(82), data["overall_score"])
	assert.Equal(t, true, data["eligible_for_round_2"])
}

func TestSummary_NotAvailable(t *testing.T) {
	svc := &mockRoundService{err: interview.ErrSummaryNotAvailable}

	rec := httptest.NewRecorder()
	NewSummaryHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, "Summary not available", data["message"])
}

func TestSummary(t *testing.T) {
	svc := &mockRoundService{summary: &models.RoundSummary{OverallScore: 40}}

	rec := httptest.NewRecorder()
	NewSummaryHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	data := parseOK(t, rec)
	assert.Equal(t, float64(40), data["overall_score"])
	assert.Equal(t, false, data["pass"])
}

func TestStatus(t *testing.T) {
	userID := uuid.New()
	svc := &mockRoundService{status: &interview.StatusResult{
		UserID:            userID,
		Status:            interview.StatusNotStarted,
		AnsweredQuestions: 0,
		TotalQuestions:    0,
	}}

	rec := httptest.NewRecorder()
	NewStatusHandler(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), userID))

	data := parseOK(t, rec)
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, interview.StatusNotStarted, data["status"])
}

func TestRoundHandlers_RequireUser(t *testing.T) {
	svc := &mockRoundService{}
	handlers := map[string]http.HandlerFunc{
		"start":   NewStartRoundHandler(svc),
		"audio":   NewQuestionAudioHandler(svc),
		"end":     NewEndRoundHandler(svc),
		"summary": NewSummaryHandler(svc),
		"status":  NewStatusHandler(svc),
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			status, code := parseErr(t, rec)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "INVALID_TOKEN", code)
		})
	}
}
