package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/mockinterview/internal/store"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mockinterview_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func createUser(t *testing.T, s store.Store, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Test User", Email: email, PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// openRound creates a user, interview and round 1 with the given questions.
func openRound(t *testing.T, s store.Store, texts ...string) (*models.Round, []models.Question) {
	t.Helper()
	ctx := context.Background()
	u := createUser(t, s, uuid.NewString()+"@example.com")
	iv, err := s.EnsureInterview(ctx, u.ID)
	require.NoError(t, err)
	round, err := s.EnsureRound(ctx, iv.ID, 1)
	require.NoError(t, err)
	qs, err := s.InsertQuestions(ctx, round.ID, texts)
	require.NoError(t, err)
	return round, qs
}

func eval(score int) *models.Evaluation {
	return &models.Evaluation{
		Score:        score,
		Feedback:     "ok",
		CriteriaMet:  score >= 7,
		Improvements: []string{},
		Dimensions:   map[string]any{},
	}
}

// --- User Tests ---

func TestUser_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	u := createUser(t, s, "Jane@Example.com")
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "jane@example.com", u.Email)

	got, err := s.GetUserByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.HasResume())

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", byID.Name)
}

func TestUser_DuplicateEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	createUser(t, s, "dup@example.com")
	err := s.CreateUser(context.Background(), &models.User{Name: "Other", Email: "DUP@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestUser_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetUserByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUser_SetResumeOnlyOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	u := createUser(t, s, "resume@example.com")

	set, err := s.SetResume(ctx, u.ID, "resume one", "jd one")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = s.SetResume(ctx, u.ID, "resume two", "jd two")
	require.NoError(t, err)
	assert.False(t, set)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "resume one", got.Resume())
	assert.Equal(t, "jd one", got.JD())

	_, err = s.SetResume(ctx, uuid.New(), "r", "j")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUser_RefreshToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	u := createUser(t, s, "token@example.com")

	token := "refresh-token"
	require.NoError(t, s.SetRefreshToken(ctx, u.ID, &token))
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, token, *got.RefreshToken)

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, nil))
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)
}

// --- Interview & Round Tests ---

func TestInterview_EnsureIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	u := createUser(t, s, "iv@example.com")

	_, err := s.GetInterviewByUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first, err := s.EnsureInterview(ctx, u.ID)
	require.NoError(t, err)
	second, err := s.EnsureInterview(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.InterviewStatusInProgress, second.Status)

	r1, err := s.EnsureRound(ctx, first.ID, 1)
	require.NoError(t, err)
	r2, err := s.EnsureRound(ctx, first.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, models.RoundStatusInProgress, r2.Status)
	assert.NotNil(t, r2.StartedAt)
}

func TestQuestions_OrderAndNextUnanswered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	round, qs := openRound(t, s, "Q1", "Q2", "Q3")
	require.Len(t, qs, 3)
	assert.Less(t, qs[0].ID, qs[1].ID)
	assert.Less(t, qs[1].ID, qs[2].ID)

	next, err := s.NextUnanswered(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q1", next.Text)

	remaining, err := s.RecordAnswer(ctx, qs[0].ID, "answer one", eval(8))
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	next, err = s.NextUnanswered(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q2", next.Text)
}

func TestRecordAnswer_Twice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	_, qs := openRound(t, s, "Q1", "Q2")
	_, err := s.RecordAnswer(ctx, qs[0].ID, "first", eval(6))
	require.NoError(t, err)

	_, err = s.RecordAnswer(ctx, qs[0].ID, "second", eval(9))
	assert.ErrorIs(t, err, store.ErrAlreadyAnswered)

	owner, err := s.GetQuestionOwner(ctx, qs[0].ID)
	require.NoError(t, err)
	require.NotNil(t, owner.Question.Answer)
	assert.Equal(t, "first", *owner.Question.Answer)
	assert.Equal(t, 6, owner.Question.Evaluation.Score)

	_, err = s.RecordAnswer(ctx, 999999, "ghost", eval(5))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordAnswer_ConcurrentOnlyOneWins(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	_, qs := openRound(t, s, "Q1")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.RecordAnswer(ctx, qs[0].ID, "answer", eval(i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrAlreadyAnswered)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCompleteRound_PassAndFail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	round, qs := openRound(t, s, "Q1")
	_, err := s.RecordAnswer(ctx, qs[0].ID, "answer", eval(4))
	require.NoError(t, err)

	summary := &models.RoundSummary{OverallScore: 40, Pass: false, Strengths: []string{}, Gaps: []string{"depth"}}
	done, err := s.CompleteRound(ctx, round.ID, summary)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusFail, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, 40, done.Result.OverallScore)
	assert.NotNil(t, done.CompletedAt)

	owner, err := s.GetQuestionOwner(ctx, qs[0].ID)
	require.NoError(t, err)
	iv, err := s.GetInterviewByUser(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewStatusFailed, iv.Status)

	_, err = s.CompleteRound(ctx, round.ID, summary)
	assert.ErrorIs(t, err, store.ErrRoundCompleted)

	_, err = s.RecordAnswer(ctx, qs[0].ID, "late", eval(9))
	assert.ErrorIs(t, err, store.ErrRoundCompleted)
}

func TestCompleteRound_PassKeepsInterviewOpen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	round, qs := openRound(t, s, "Q1")
	done, err := s.CompleteRound(ctx, round.ID, &models.RoundSummary{OverallScore: 85, Pass: true, EligibleForRound2: true})
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusPass, done.Status)

	owner, err := s.GetQuestionOwner(ctx, qs[0].ID)
	require.NoError(t, err)
	iv, err := s.GetInterviewByUser(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewStatusInProgress, iv.Status)
}

func TestResetRound_ReplacesQuestions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	round, qs := openRound(t, s, "old 1", "old 2")
	_, err := s.RecordAnswer(ctx, qs[0].ID, "answer", eval(7))
	require.NoError(t, err)
	_, err = s.CompleteRound(ctx, round.ID, &models.RoundSummary{OverallScore: 70, Pass: true})
	require.NoError(t, err)

	reset, err := s.ResetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusInProgress, reset.Status)
	assert.Nil(t, reset.Result)
	assert.Nil(t, reset.CompletedAt)
	assert.Equal(t, round.StartedAt.Unix(), reset.StartedAt.Unix())

	_, err = s.InsertQuestions(ctx, round.ID, []string{"new 1"})
	require.NoError(t, err)

	all, err := s.ListQuestions(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new 1", all[0].Text)

	evals, err := s.ListEvaluations(ctx, round.ID)
	require.NoError(t, err)
	assert.Empty(t, evals)

	_, err = s.GetQuestionOwner(ctx, qs[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListEvaluations_OnlyAnswered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	round, qs := openRound(t, s, "Q1", "Q2", "Q3")
	_, err := s.RecordAnswer(ctx, qs[2].ID, "c", eval(3))
	require.NoError(t, err)
	_, err = s.RecordAnswer(ctx, qs[0].ID, "a", eval(9))
	require.NoError(t, err)

	evals, err := s.ListEvaluations(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, 9, evals[0].Score)
	assert.Equal(t, 3, evals[1].Score)
}
