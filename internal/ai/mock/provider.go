package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// MockProvider satisfies models.LLMProvider for testing and local development.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (string, error)

	mu    sync.Mutex
	calls []models.CompletionRequest
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

// Calls returns the requests received so far.
func (m *MockProvider) Calls() []models.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CompletionRequest(nil), m.calls...)
}

// NewMockProvider returns a MockProvider that answers question generation,
// evaluation and summary prompts with canned fenced JSON.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, req models.CompletionRequest) (string, error) {
			switch {
			case strings.Contains(req.System, "question generator"):
				return cannedQuestions, nil
			case strings.Contains(req.System, "evaluator"):
				return cannedEvaluation, nil
			default:
				return cannedSummary, nil
			}
		},
	}
}

// NewStaticProvider returns a MockProvider that always replies with text.
func NewStaticProvider(text string) *MockProvider {
	return &MockProvider{
		Name_: "mock-static",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return text, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

const cannedQuestions = "```json\n" + `{
  "questions": [
    {"id": 1, "question": "Walk me through a project on your résumé you are most proud of.", "type": "experience"},
    {"id": 2, "question": "How would you design a rate limiter for a public API?", "type": "technical"},
    {"id": 3, "question": "Describe a time you disagreed with a teammate and how you resolved it.", "type": "behavioral"},
    {"id": 4, "question": "A deployment doubles p99 latency. How do you investigate?", "type": "scenario"},
    {"id": 5, "question": "Which parts of this role's stack have you used in production, and how?", "type": "technical"}
  ]
}` + "\n```"

const cannedEvaluation = `{"score": 7, "meets_requirement": true, "feedback": "Clear answer with a relevant example.", "improvements": ["Quantify the impact"], "dimensions": {"relevance": 8, "clarity": 7, "depth": 6, "examples": 7}}`

const cannedSummary = `{"overall_score": 72, "pass": true, "strengths": ["Communication"], "gaps": ["System design depth"], "recommendations": ["Practice design questions"], "topic_breakdown": [{"topic": "technical", "avg_score": 7}]}`

// Compile-time check that MockProvider implements LLMProvider.
var _ models.LLMProvider = (*MockProvider)(nil)
