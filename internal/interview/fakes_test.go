package interview_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/ai"
	"github.com/kiranshivaraju/mockinterview/internal/store"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// memRepo is an in-memory Repository with the same guards as the Postgres store.
type memRepo struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	interviews map[uuid.UUID]*models.Interview // by user id
	rounds     map[uuid.UUID]*models.Round
	questions  map[int64]*models.Question
	nextID     int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:      map[uuid.UUID]*models.User{},
		interviews: map[uuid.UUID]*models.Interview{},
		rounds:     map[uuid.UUID]*models.Round{},
		questions:  map[int64]*models.Question{},
	}
}

func (m *memRepo) addUser(withResume bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: uuid.New(), Name: "Candidate", Email: uuid.NewString() + "@example.com"}
	if withResume {
		resume, jd := "Go developer, 5 years", "Backend engineer"
		u.ResumeText, u.JobDescription = &resume, &jd
	}
	m.users[u.ID] = u
	return u.ID
}

func (m *memRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) EnsureInterview(_ context.Context, userID uuid.UUID) (*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[userID]
	if !ok {
		iv = &models.Interview{ID: uuid.New(), UserID: userID, Status: models.InterviewStatusInProgress}
		m.interviews[userID] = iv
	}
	cp := *iv
	return &cp, nil
}

func (m *memRepo) GetInterviewByUser(_ context.Context, userID uuid.UUID) (*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *iv
	return &cp, nil
}

func (m *memRepo) findRound(interviewID uuid.UUID, n int) *models.Round {
	for _, r := range m.rounds {
		if r.InterviewID == interviewID && r.RoundNumber == n {
			return r
		}
	}
	return nil
}

func (m *memRepo) EnsureRound(_ context.Context, interviewID uuid.UUID, n int) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.findRound(interviewID, n)
	if r == nil {
		now := time.Now()
		r = &models.Round{ID: uuid.New(), InterviewID: interviewID, RoundNumber: n,
			Status: models.RoundStatusInProgress, StartedAt: &now}
		m.rounds[r.ID] = r
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) GetRound(_ context.Context, interviewID uuid.UUID, n int) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.findRound(interviewID, n)
	if r == nil {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) ResetRound(_ context.Context, roundID uuid.UUID) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, q := range m.questions {
		if q.RoundID == roundID {
			delete(m.questions, id)
		}
	}
	r.Status = models.RoundStatusInProgress
	r.CompletedAt = nil
	r.Result = nil
	cp := *r
	return &cp, nil
}

func (m *memRepo) CompleteRound(_ context.Context, roundID uuid.UUID, summary *models.RoundSummary) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.CompletedAt != nil {
		return nil, store.ErrRoundCompleted
	}
	now := time.Now()
	sum := *summary
	r.Status = summary.Status()
	r.Result = &sum
	r.CompletedAt = &now
	for _, iv := range m.interviews {
		if iv.ID == r.InterviewID {
			if summary.Pass {
				iv.Status = models.InterviewStatusInProgress
			} else {
				iv.Status = models.InterviewStatusFailed
			}
		}
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) InsertQuestions(_ context.Context, roundID uuid.UUID, texts []string) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Question{}
	for _, t := range texts {
		m.nextID++
		q := &models.Question{ID: m.nextID, RoundID: roundID, Text: t, CreatedAt: time.Now()}
		m.questions[q.ID] = q
		out = append(out, *q)
	}
	return out, nil
}

func (m *memRepo) roundQuestions(roundID uuid.UUID) []*models.Question {
	var qs []*models.Question
	for _, q := range m.questions {
		if q.RoundID == roundID {
			qs = append(qs, q)
		}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs
}

func (m *memRepo) ListQuestions(_ context.Context, roundID uuid.UUID) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Question{}
	for _, q := range m.roundQuestions(roundID) {
		out = append(out, *q)
	}
	return out, nil
}

func (m *memRepo) NextUnanswered(_ context.Context, roundID uuid.UUID) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.roundQuestions(roundID) {
		if !q.Answered() {
			cp := *q
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) GetQuestionOwner(_ context.Context, questionID int64) (*models.QuestionOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	r := m.rounds[q.RoundID]
	var userID uuid.UUID
	for uid, iv := range m.interviews {
		if iv.ID == r.InterviewID {
			userID = uid
		}
	}
	return &models.QuestionOwner{
		Question:    *q,
		UserID:      userID,
		InterviewID: r.InterviewID,
		RoundNumber: r.RoundNumber,
		RoundStatus: r.Status,
	}, nil
}

func (m *memRepo) RecordAnswer(_ context.Context, questionID int64, answer string, eval *models.Evaluation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if m.rounds[q.RoundID].CompletedAt != nil {
		return 0, store.ErrRoundCompleted
	}
	if q.Answered() {
		return 0, store.ErrAlreadyAnswered
	}
	e := *eval
	q.Answer, q.Evaluation = &answer, &e

	remaining := 0
	for _, other := range m.roundQuestions(q.RoundID) {
		if !other.Answered() {
			remaining++
		}
	}
	return remaining, nil
}

func (m *memRepo) ListEvaluations(_ context.Context, roundID uuid.UUID) ([]models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Evaluation{}
	for _, q := range m.roundQuestions(roundID) {
		if q.Evaluation != nil {
			out = append(out, *q.Evaluation)
		}
	}
	return out, nil
}

// flakyRepo fails CompleteRound on a canceled context, the way a pgx query
// does, and with a transient error while failures remain.
type flakyRepo struct {
	*memRepo
	failures int
}

func (f *flakyRepo) CompleteRound(ctx context.Context, roundID uuid.UUID, summary *models.RoundSummary) (*models.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("conn reset by peer")
	}
	return f.memRepo.CompleteRound(ctx, roundID, summary)
}

// memLocker is a process-local Locker.
type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	calls int
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if _, busy := l.held[key]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type memAudio struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (a *memAudio) Get(_ context.Context, key string) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.data[key]
	return v, ok, nil
}

func (a *memAudio) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		a.data = map[string][]byte{}
	}
	a.data[key] = value
	return nil
}

type stubQuestions struct {
	questions []string
	calls     int
}

func (s *stubQuestions) Generate(_ context.Context, req ai.QuestionRequest) ai.QuestionBatch {
	s.calls++
	qs := append([]string(nil), s.questions...)
	if len(qs) > req.Count {
		qs = qs[:req.Count]
	}
	return ai.QuestionBatch{Questions: qs}
}

type stubEvaluator struct {
	score      int
	onEvaluate func()
}

func (s *stubEvaluator) Evaluate(_ context.Context, req ai.EvaluationRequest) models.Evaluation {
	if s.onEvaluate != nil {
		s.onEvaluate()
	}
	return models.Evaluation{
		Score:        s.score,
		Feedback:     "answer to " + req.Question,
		CriteriaMet:  s.score >= 7,
		Improvements: []string{},
		Dimensions:   map[string]any{},
	}
}

type stubSummarizer struct {
	calls       int
	onSummarize func()
}

// Summarize mirrors the fallback rule so tests can predict the outcome.
func (s *stubSummarizer) Summarize(_ context.Context, req ai.SummaryRequest) models.RoundSummary {
	s.calls++
	if s.onSummarize != nil {
		s.onSummarize()
	}
	overall := ai.FallbackScore(req.Evaluations)
	pass := overall >= models.PassThreshold
	return models.RoundSummary{
		OverallScore:      overall,
		Pass:              pass,
		Strengths:         []string{},
		Gaps:              []string{},
		Recommendations:   []string{},
		TopicBreakdown:    []models.TopicScore{},
		EligibleForRound2: pass,
	}
}
