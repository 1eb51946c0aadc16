package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

const userColumns = `id, name, email, password_hash, refresh_token, resume_text, job_description, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RefreshToken,
		&u.ResumeText, &u.JobDescription, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetResume(ctx context.Context, id uuid.UUID, resume, jd string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET resume_text = $2, job_description = $3, updated_at = NOW()
		 WHERE id = $1 AND (resume_text IS NULL OR job_description IS NULL)`, id, resume, jd)
	if err != nil {
		return false, fmt.Errorf("set resume: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := s.GetUserByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// --- Interviews ---

const interviewColumns = `id, user_id, status, final_result_json, round_2_confirmation_sent, round_2_reminder_sent, created_at, updated_at`

func scanInterview(row pgx.Row) (*models.Interview, error) {
	var iv models.Interview
	var final []byte
	err := row.Scan(&iv.ID, &iv.UserID, &iv.Status, &final,
		&iv.Round2ConfirmationSent, &iv.Round2ReminderSent, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if iv.FinalResult, err = decodeJSON[models.RoundSummary](final); err != nil {
		return nil, fmt.Errorf("decode final result: %w", err)
	}
	return &iv, nil
}

func (s *PostgresStore) EnsureInterview(ctx context.Context, userID uuid.UUID) (*models.Interview, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	iv, err := scanInterview(s.pool.QueryRow(ctx,
		`INSERT INTO interviews (id, user_id, status) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = interviews.updated_at
		 RETURNING `+interviewColumns,
		uuid.New(), userID, models.InterviewStatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("ensure interview: %w", err)
	}
	return iv, nil
}

func (s *PostgresStore) GetInterviewByUser(ctx context.Context, userID uuid.UUID) (*models.Interview, error) {
	iv, err := scanInterview(s.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

// --- Rounds ---

const roundColumns = `id, interview_id, round_number, status, result_json, scheduled_at, started_at, completed_at, created_at, updated_at`

func scanRound(row pgx.Row) (*models.Round, error) {
	var r models.Round
	var result []byte
	err := row.Scan(&r.ID, &r.InterviewID, &r.RoundNumber, &r.Status, &result,
		&r.ScheduledAt, &r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.Result, err = decodeJSON[models.RoundSummary](result); err != nil {
		return nil, fmt.Errorf("decode round result: %w", err)
	}
	return &r, nil
}

var validTransitions = map[string][]string{
	models.RoundStatusPending:    {models.RoundStatusInProgress},
	models.RoundStatusInProgress: {models.RoundStatusInProgress, models.RoundStatusPass, models.RoundStatusFail},
	models.RoundStatusPass:       {models.RoundStatusInProgress},
	models.RoundStatusFail:       {models.RoundStatusInProgress},
}

func checkTransition(from, to string) error {
	if !slices.Contains(validTransitions[from], to) {
		return fmt.Errorf("invalid round status transition: %s -> %s", from, to)
	}
	return nil
}

func (s *PostgresStore) EnsureRound(ctx context.Context, interviewID uuid.UUID, roundNumber int) (*models.Round, error) {
	r, err := scanRound(s.pool.QueryRow(ctx,
		`INSERT INTO interview_rounds (id, interview_id, round_number, status, started_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (interview_id, round_number) DO UPDATE SET
		   status = CASE WHEN interview_rounds.status = $5 THEN $4 ELSE interview_rounds.status END,
		   started_at = CASE WHEN interview_rounds.status = $5
		     THEN COALESCE(interview_rounds.started_at, NOW())
		     ELSE interview_rounds.started_at END,
		   updated_at = NOW()
		 RETURNING `+roundColumns,
		uuid.New(), interviewID, roundNumber, models.RoundStatusInProgress, models.RoundStatusPending))
	if err != nil {
		return nil, fmt.Errorf("ensure round: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) GetRound(ctx context.Context, interviewID uuid.UUID, roundNumber int) (*models.Round, error) {
	r, err := scanRound(s.pool.QueryRow(ctx,
		`SELECT `+roundColumns+` FROM interview_rounds WHERE interview_id = $1 AND round_number = $2`,
		interviewID, roundNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ResetRound(ctx context.Context, roundID uuid.UUID) (*models.Round, error) {
	var round *models.Round
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx,
			`SELECT status FROM interview_rounds WHERE id = $1 FOR UPDATE`, roundID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}
		if err := checkTransition(current, models.RoundStatusInProgress); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM interview_questions WHERE round_id = $1`, roundID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}

		round, err = scanRound(tx.QueryRow(ctx,
			`UPDATE interview_rounds SET
			   status = $2,
			   started_at = COALESCE(started_at, NOW()),
			   completed_at = NULL,
			   result_json = NULL,
			   updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+roundColumns, roundID, models.RoundStatusInProgress))
		if err != nil {
			return fmt.Errorf("reopen round: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

func (s *PostgresStore) CompleteRound(ctx context.Context, roundID uuid.UUID, summary *models.RoundSummary) (*models.Round, error) {
	if summary == nil {
		return nil, fmt.Errorf("complete round: summary is required")
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	status := summary.Status()

	var round *models.Round
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current string
		var interviewID uuid.UUID
		var completedAt *time.Time
		err := tx.QueryRow(ctx,
			`SELECT status, interview_id, completed_at FROM interview_rounds WHERE id = $1 FOR UPDATE`,
			roundID).Scan(&current, &interviewID, &completedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}
		if completedAt != nil {
			return ErrRoundCompleted
		}
		if err := checkTransition(current, status); err != nil {
			return err
		}

		round, err = scanRound(tx.QueryRow(ctx,
			`UPDATE interview_rounds SET status = $2, result_json = $3, completed_at = NOW(), updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+roundColumns, roundID, status, payload))
		if err != nil {
			return fmt.Errorf("complete round: %w", err)
		}

		// A pass keeps the interview open for the next round; a fail ends it.
		if summary.Pass {
			_, err = tx.Exec(ctx,
				`UPDATE interviews SET status = $2, updated_at = NOW() WHERE id = $1`,
				interviewID, models.InterviewStatusInProgress)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE interviews SET status = $2, final_result_json = $3, updated_at = NOW() WHERE id = $1`,
				interviewID, models.InterviewStatusFailed, payload)
		}
		if err != nil {
			return fmt.Errorf("update interview status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

// --- Questions ---

const questionColumns = `id, round_id, question_text, answer_text, evaluation_json, created_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	var eval []byte
	if err := row.Scan(&q.ID, &q.RoundID, &q.Text, &q.Answer, &eval, &q.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if q.Evaluation, err = decodeJSON[models.Evaluation](eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	return &q, nil
}

func (s *PostgresStore) InsertQuestions(ctx context.Context, roundID uuid.UUID, texts []string) ([]models.Question, error) {
	if len(texts) == 0 {
		return []models.Question{}, nil
	}

	out := make([]models.Question, 0, len(texts))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, text := range texts {
			q := models.Question{RoundID: roundID, Text: text}
			err := tx.QueryRow(ctx,
				`INSERT INTO interview_questions (round_id, question_text) VALUES ($1, $2)
				 RETURNING id, created_at`, roundID, text,
			).Scan(&q.ID, &q.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			out = append(out, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, roundID uuid.UUID) ([]models.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM interview_questions WHERE round_id = $1 ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (s *PostgresStore) NextUnanswered(ctx context.Context, roundID uuid.UUID) (*models.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM interview_questions
		 WHERE round_id = $1 AND answer_text IS NULL
		 ORDER BY id LIMIT 1`, roundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("next unanswered question: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) GetQuestionOwner(ctx context.Context, questionID int64) (*models.QuestionOwner, error) {
	var o models.QuestionOwner
	var eval []byte
	err := s.pool.QueryRow(ctx,
		`SELECT q.id, q.round_id, q.question_text, q.answer_text, q.evaluation_json, q.created_at,
		        i.user_id, i.id, r.round_number, r.status
		 FROM interview_questions q
		 JOIN interview_rounds r ON r.id = q.round_id
		 JOIN interviews i ON i.id = r.interview_id
		 WHERE q.id = $1`, questionID,
	).Scan(&o.Question.ID, &o.Question.RoundID, &o.Question.Text, &o.Question.Answer, &eval,
		&o.Question.CreatedAt, &o.UserID, &o.InterviewID, &o.RoundNumber, &o.RoundStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question owner: %w", err)
	}
	if o.Question.Evaluation, err = decodeJSON[models.Evaluation](eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) RecordAnswer(ctx context.Context, questionID int64, answer string, eval *models.Evaluation) (int, error) {
	if eval == nil {
		return 0, fmt.Errorf("record answer: evaluation is required")
	}
	payload, err := json.Marshal(eval)
	if err != nil {
		return 0, fmt.Errorf("encode evaluation: %w", err)
	}

	var remaining int
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var roundID uuid.UUID
		err := tx.QueryRow(ctx,
			`UPDATE interview_questions q
			 SET answer_text = $2, evaluation_json = $3, updated_at = NOW()
			 FROM interview_rounds r
			 WHERE q.id = $1 AND r.id = q.round_id
			   AND q.answer_text IS NULL AND r.completed_at IS NULL
			 RETURNING q.round_id`, questionID, answer, payload,
		).Scan(&roundID)
		if errors.Is(err, pgx.ErrNoRows) {
			return s.diagnoseAnswer(ctx, tx, questionID)
		}
		if err != nil {
			return fmt.Errorf("record answer: %w", err)
		}

		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM interview_questions WHERE round_id = $1 AND answer_text IS NULL`,
			roundID).Scan(&remaining)
		if err != nil {
			return fmt.Errorf("count unanswered: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// diagnoseAnswer explains why RecordAnswer updated no row.
func (s *PostgresStore) diagnoseAnswer(ctx context.Context, tx pgx.Tx, questionID int64) error {
	var answered, completed bool
	err := tx.QueryRow(ctx,
		`SELECT q.answer_text IS NOT NULL, r.completed_at IS NOT NULL
		 FROM interview_questions q JOIN interview_rounds r ON r.id = q.round_id
		 WHERE q.id = $1`, questionID).Scan(&answered, &completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect question: %w", err)
	}
	if completed {
		return ErrRoundCompleted
	}
	if answered {
		return ErrAlreadyAnswered
	}
	return fmt.Errorf("record answer: question %d was not updated", questionID)
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, roundID uuid.UUID) ([]models.Evaluation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT evaluation_json FROM interview_questions
		 WHERE round_id = $1 AND evaluation_json IS NOT NULL
		 ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	evals := []models.Evaluation{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		var e models.Evaluation
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode evaluation: %w", err)
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

func decodeJSON[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
