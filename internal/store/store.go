package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

var (
	// ErrAlreadyAnswered is returned when an answer is recorded twice for one question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrRoundCompleted is returned when a completed round is written to.
	ErrRoundCompleted = errors.New("round already completed")
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	// SetResume stores the résumé and job description unless both are
	// already present. It reports whether the row was written.
	SetResume(ctx context.Context, id uuid.UUID, resume, jd string) (bool, error)

	EnsureInterview(ctx context.Context, userID uuid.UUID) (*models.Interview, error)
	GetInterviewByUser(ctx context.Context, userID uuid.UUID) (*models.Interview, error)

	// EnsureRound returns the round, creating it in_progress when absent and
	// moving a pending round to in_progress.
	EnsureRound(ctx context.Context, interviewID uuid.UUID, roundNumber int) (*models.Round, error)
	GetRound(ctx context.Context, interviewID uuid.UUID, roundNumber int) (*models.Round, error)
	// ResetRound deletes every question of the round and reopens it.
	ResetRound(ctx context.Context, roundID uuid.UUID) (*models.Round, error)
	// CompleteRound persists the summary, sets the terminal status and
	// updates the owning interview in one transaction.
	CompleteRound(ctx context.Context, roundID uuid.UUID, summary *models.RoundSummary) (*models.Round, error)

	InsertQuestions(ctx context.Context, roundID uuid.UUID, texts []string) ([]models.Question, error)
	ListQuestions(ctx context.Context, roundID uuid.UUID) ([]models.Question, error)
	NextUnanswered(ctx context.Context, roundID uuid.UUID) (*models.Question, error)
	GetQuestionOwner(ctx context.Context, questionID int64) (*models.QuestionOwner, error)
	// RecordAnswer writes the answer and evaluation of an unanswered question
	// of an open round and returns how many questions remain unanswered.
	RecordAnswer(ctx context.Context, questionID int64, answer string, eval *models.Evaluation) (int, error)
	ListEvaluations(ctx context.Context, roundID uuid.UUID) ([]models.Evaluation, error)
}
