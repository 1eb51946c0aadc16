// Package interview drives the round lifecycle: question generation, answer
// capture and evaluation, and round completion.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/ai"
	"github.com/kiranshivaraju/mockinterview/internal/cache"
	"github.com/kiranshivaraju/mockinterview/internal/store"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// RoundOne is the only round driven by this service.
const RoundOne = 1

const lockPollInterval = 100 * time.Millisecond

// Repository is the persistence the lifecycle depends on.
type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	EnsureInterview(ctx context.Context, userID uuid.UUID) (*models.Interview, error)
	GetInterviewByUser(ctx context.Context, userID uuid.UUID) (*models.Interview, error)
	EnsureRound(ctx context.Context, interviewID uuid.UUID, roundNumber int) (*models.Round, error)
	GetRound(ctx context.Context, interviewID uuid.UUID, roundNumber int) (*models.Round, error)
	ResetRound(ctx context.Context, roundID uuid.UUID) (*models.Round, error)
	CompleteRound(ctx context.Context, roundID uuid.UUID, summary *models.RoundSummary) (*models.Round, error)
	InsertQuestions(ctx context.Context, roundID uuid.UUID, texts []string) ([]models.Question, error)
	ListQuestions(ctx context.Context, roundID uuid.UUID) ([]models.Question, error)
	NextUnanswered(ctx context.Context, roundID uuid.UUID) (*models.Question, error)
	GetQuestionOwner(ctx context.Context, questionID int64) (*models.QuestionOwner, error)
	RecordAnswer(ctx context.Context, questionID int64, answer string, eval *models.Evaluation) (int, error)
	ListEvaluations(ctx context.Context, roundID uuid.UUID) ([]models.Evaluation, error)
}

// Locker serializes writers of one round across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// AudioCache remembers synthesized audio URLs per question.
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type QuestionGenerator interface {
	Generate(ctx context.Context, req ai.QuestionRequest) ai.QuestionBatch
}

type Evaluator interface {
	Evaluate(ctx context.Context, req ai.EvaluationRequest) models.Evaluation
}

type Summarizer interface {
	Summarize(ctx context.Context, req ai.SummaryRequest) models.RoundSummary
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, name string) (string, error)
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Repo        Repository
	Locker      Locker
	Audio       AudioCache
	Questions   QuestionGenerator
	Evaluator   Evaluator
	Summarizer  Summarizer
	Transcriber Transcriber
	Synthesizer Synthesizer
	Logger      *slog.Logger
}

type Options struct {
	QuestionCount int
	Difficulty    string
	LockTTL       time.Duration
	LockWait      time.Duration
	AudioTTL      time.Duration
}

type Service struct {
	Deps
	opts Options
}

func NewService(deps Deps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = 5
	}
	if opts.Difficulty == "" {
		opts.Difficulty = "easy"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	return &Service{Deps: deps, opts: opts}
}

// QuestionView is the client-facing shape of a question.
type QuestionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type StartResult struct {
	InterviewID uuid.UUID      `json:"interview_id"`
	RoundID     uuid.UUID      `json:"round_id"`
	RoundStatus string         `json:"round_status"`
	Message     string         `json:"message,omitempty"`
	Questions   []QuestionView `json:"questions"`
}

// StartStatusError marks a start whose question batch came back empty.
const StartStatusError = "error"

// Start begins round one, or restarts it in place. A restart discards every
// previous question and answer of the round.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (*StartResult, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasResume() {
		return nil, ErrMissingResume
	}

	iv, err := s.Repo.EnsureInterview(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Generation runs before the lock; concurrent starts each generate a
	// batch and the last writer's batch wins.
	batch := s.Questions.Generate(ctx, ai.QuestionRequest{
		Resume:     user.Resume(),
		JD:         user.JD(),
		Difficulty: s.opts.Difficulty,
		Count:      s.opts.QuestionCount,
	})

	var round *models.Round
	var questions []models.Question
	err = s.withRoundLock(ctx, iv.ID, func() error {
		existing, err := s.Repo.GetRound(ctx, iv.ID, RoundOne)
		switch {
		case err == nil:
			if round, err = s.Repo.ResetRound(ctx, existing.ID); err != nil {
				return err
			}
			s.Logger.Info("round.reset", "interview_id", iv.ID, "round_id", round.ID)
		case errors.Is(err, store.ErrNotFound):
			if round, err = s.Repo.EnsureRound(ctx, iv.ID, RoundOne); err != nil {
				return err
			}
			s.Logger.Info("round.started", "interview_id", iv.ID, "round_id", round.ID)
		default:
			return err
		}

		questions, err = s.Repo.InsertQuestions(ctx, round.ID, batch.Questions)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &StartResult{
		InterviewID: iv.ID,
		RoundID:     round.ID,
		RoundStatus: round.Status,
		Questions:   make([]QuestionView, 0, len(questions)),
	}
	for _, q := range questions {
		res.Questions = append(res.Questions, QuestionView{ID: q.ID, Text: q.Text})
	}
	if len(res.Questions) == 0 {
		res.RoundStatus = StartStatusError
		res.Message = "Question generation failed"
		s.Logger.Warn("round.start_without_questions", "round_id", round.ID, "diagnostic", batch.Diagnostic)
	}
	return res, nil
}

type QuestionAudio struct {
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	AudioURL   string `json:"audio_url"`
}

// NextQuestion returns the lowest-id unanswered question of round one with
// its audio. ErrNoMoreQuestions means every question has an answer.
func (s *Service) NextQuestion(ctx context.Context, userID uuid.UUID) (*QuestionAudio, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	iv, err := s.Repo.EnsureInterview(ctx, userID)
	if err != nil {
		return nil, err
	}
	round, err := s.Repo.EnsureRound(ctx, iv.ID, RoundOne)
	if err != nil {
		return nil, err
	}

	if round.Completed() {
		return nil, ErrNoMoreQuestions
	}

	q, err := s.Repo.NextUnanswered(ctx, round.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.completeIfExhausted(ctx, iv.ID, round.ID, user)
		return nil, ErrNoMoreQuestions
	}
	if err != nil {
		return nil, err
	}

	return &QuestionAudio{QuestionID: q.ID, Text: q.Text, AudioURL: s.audioURL(ctx, q)}, nil
}

// audioURL returns the cached audio for q or synthesizes it. Synthesis
// failures yield an empty URL; the question text is still usable.
func (s *Service) audioURL(ctx context.Context, q *models.Question) string {
	key := cache.QuestionAudioKey(q.ID)
	if s.Audio != nil {
		if b, ok, err := s.Audio.Get(ctx, key); err != nil {
			s.Logger.Warn("question_audio.cache_read_failed", "question_id", q.ID, "error", err)
		} else if ok {
			return string(b)
		}
	}

	url, err := s.Synthesizer.Synthesize(ctx, q.Text, fmt.Sprintf("q_%d", q.ID))
	if err != nil {
		s.Logger.Error("question_audio.failed", "question_id", q.ID, "error", err)
		return ""
	}
	if s.Audio != nil {
		if err := s.Audio.Set(ctx, key, []byte(url), s.opts.AudioTTL); err != nil {
			s.Logger.Warn("question_audio.cache_write_failed", "question_id", q.ID, "error", err)
		}
	}
	return url
}

type Answer struct {
	Audio    []byte
	MIMEType string
}

type SubmitResult struct {
	QuestionID int64                `json:"question_id"`
	Transcript string               `json:"transcript"`
	Evaluation models.Evaluation    `json:"evaluation"`
	Completed  bool                 `json:"completed"`
	Summary    *models.RoundSummary `json:"summary,omitempty"`
}

// SubmitAnswer transcribes and evaluates an answer, records it, and completes
// the round when it was the last unanswered question.
func (s *Service) SubmitAnswer(ctx context.Context, userID uuid.UUID, questionID int64, ans Answer) (*SubmitResult, error) {
	if len(ans.Audio) == 0 {
		return nil, ErrMissingAudio
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	owner, err := s.Repo.GetQuestionOwner(ctx, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner.UserID != userID {
		return nil, ErrForbidden
	}
	if owner.RoundStatus == models.RoundStatusPass || owner.RoundStatus == models.RoundStatusFail {
		return nil, ErrRoundCompleted
	}
	if owner.Question.Answered() {
		s.completeIfExhausted(ctx, owner.InterviewID, owner.Question.RoundID, user)
		return nil, ErrAlreadyAnswered
	}

	transcript, err := s.Transcriber.Transcribe(ctx, ans.Audio, ans.MIMEType)
	if err != nil {
		s.Logger.Error("answer_transcription.failed", "question_id", questionID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	}

	eval := s.Evaluator.Evaluate(ctx, ai.EvaluationRequest{
		Question: owner.Question.Text,
		Answer:   transcript,
		Resume:   user.Resume(),
		JD:       user.JD(),
	})

	res := &SubmitResult{QuestionID: questionID, Transcript: transcript, Evaluation: eval}
	err = s.withRoundLock(ctx, owner.InterviewID, func() error {
		remaining, err := s.Repo.RecordAnswer(ctx, questionID, transcript, &eval)
		if err != nil {
			return mapStoreErr(err)
		}
		if remaining > 0 {
			return nil
		}

		// The last answer is committed; completion must not depend on the
		// caller staying connected.
		summary, err := s.complete(context.WithoutCancel(ctx), owner.Question.RoundID, user)
		if err != nil {
			return err
		}
		res.Completed = true
		res.Summary = summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EndRound forces completion of round one with whatever evaluations exist.
// A round that is already complete returns its persisted summary.
func (s *Service) EndRound(ctx context.Context, userID uuid.UUID) (*models.RoundSummary, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	iv, err := s.Repo.EnsureInterview(ctx, userID)
	if err != nil {
		return nil, err
	}
	round, err := s.Repo.EnsureRound(ctx, iv.ID, RoundOne)
	if err != nil {
		return nil, err
	}

	var summary *models.RoundSummary
	err = s.withRoundLock(ctx, iv.ID, func() error {
		current, err := s.Repo.GetRound(ctx, iv.ID, RoundOne)
		if err != nil {
			return err
		}
		if current.Completed() && current.Result != nil {
			summary = current.Result
			return nil
		}
		summary, err = s.complete(ctx, round.ID, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// complete summarizes and persists the round. Callers hold the round lock.
func (s *Service) complete(ctx context.Context, roundID uuid.UUID, user *models.User) (*models.RoundSummary, error) {
	evals, err := s.Repo.ListEvaluations(ctx, roundID)
	if err != nil {
		return nil, err
	}

	summary := s.Summarizer.Summarize(ctx, ai.SummaryRequest{
		Evaluations: evals,
		Resume:      user.Resume(),
		JD:          user.JD(),
	})

	round, err := s.Repo.CompleteRound(ctx, roundID, &summary)
	if errors.Is(err, store.ErrRoundCompleted) {
		return s.persistedSummary(ctx, user.ID)
	}
	if err != nil {
		return nil, err
	}
	s.Logger.Info("round.completed",
		"round_id", round.ID,
		"status", round.Status,
		"overall_score", summary.OverallScore,
		"answers", len(evals),
	)
	return round.Result, nil
}

// completeIfExhausted completes an in-progress round whose questions all carry
// answers, which happens when completion after the last answer was cut short.
// Failures are logged; the caller's own result stands.
func (s *Service) completeIfExhausted(ctx context.Context, interviewID, roundID uuid.UUID, user *models.User) {
	err := s.withRoundLock(ctx, interviewID, func() error {
		round, err := s.Repo.GetRound(ctx, interviewID, RoundOne)
		if err != nil {
			return err
		}
		if round.ID != roundID || round.Completed() {
			return nil
		}
		questions, err := s.Repo.ListQuestions(ctx, roundID)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for _, q := range questions {
			if !q.Answered() {
				return nil
			}
		}
		s.Logger.Warn("round.completion_resumed", "round_id", roundID)
		_, err = s.complete(context.WithoutCancel(ctx), roundID, user)
		return err
	})
	if err != nil {
		s.Logger.Error("round.completion_resume_failed", "round_id", roundID, "error", err)
	}
}

// GetSummary returns the persisted round one summary.
func (s *Service) GetSummary(ctx context.Context, userID uuid.UUID) (*models.RoundSummary, error) {
	return s.persistedSummary(ctx, userID)
}

func (s *Service) persistedSummary(ctx context.Context, userID uuid.UUID) (*models.RoundSummary, error) {
	iv, err := s.Repo.GetInterviewByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSummaryNotAvailable
	}
	if err != nil {
		return nil, err
	}
	round, err := s.Repo.GetRound(ctx, iv.ID, RoundOne)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSummaryNotAvailable
	}
	if err != nil {
		return nil, err
	}
	if round.Result == nil {
		return nil, ErrSummaryNotAvailable
	}
	return round.Result, nil
}

const (
	StatusInProgress = "in_progress"
	StatusNotStarted = "not_started"
)

type StatusResult struct {
	UserID            uuid.UUID            `json:"user_id"`
	Status            string               `json:"status"`
	Round1Summary     *models.RoundSummary `json:"round_1_summary"`
	RoundStatus       string               `json:"round_status,omitempty"`
	InterviewStatus   string               `json:"interview_status,omitempty"`
	AnsweredQuestions int                  `json:"answered_questions"`
	TotalQuestions    int                  `json:"total_questions"`
}

// Status reports the interview progress. It never creates rows.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	res := &StatusResult{UserID: userID, Status: StatusNotStarted}

	iv, err := s.Repo.GetInterviewByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.InterviewStatus = iv.Status

	round, err := s.Repo.GetRound(ctx, iv.ID, RoundOne)
	if errors.Is(err, store.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.RoundStatus = round.Status
	res.Round1Summary = round.Result
	if round.Result != nil {
		res.Status = StatusInProgress
	}

	questions, err := s.Repo.ListQuestions(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	res.TotalQuestions = len(questions)
	for _, q := range questions {
		if q.Answered() {
			res.AnsweredQuestions++
		}
	}
	return res, nil
}

func (s *Service) user(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// withRoundLock runs fn while holding the round lock, polling until
// LockWait elapses.
func (s *Service) withRoundLock(ctx context.Context, interviewID uuid.UUID, fn func() error) error {
	key := cache.RoundLockKey(interviewID, RoundOne)
	deadline := time.Now().Add(s.opts.LockWait)
	for {
		token, ok, err := s.Locker.TryLock(ctx, key, s.opts.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire round lock: %w", err)
		}
		if ok {
			defer func() {
				if err := s.Locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					s.Logger.Warn("round_lock.release_failed", "key", key, "error", err)
				}
			}()
			return fn()
		}
		if !time.Now().Before(deadline) {
			s.Logger.Warn("round_lock.busy", "key", key)
			return ErrRoundBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrAlreadyAnswered):
		return ErrAlreadyAnswered
	case errors.Is(err, store.ErrRoundCompleted):
		return ErrRoundCompleted
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}
