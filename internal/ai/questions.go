package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kiranshivaraju/mockinterview/pkg/llmjson"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

const questionTemperature = 0.7

// QuestionRequest is the input to a question generation call.
type QuestionRequest struct {
	Resume     string
	JD         string
	Difficulty string
	Count      int
}

// QuestionBatch is the outcome of a generation call. Questions is empty when
// the provider failed or nothing usable came back; Diagnostic then says why.
type QuestionBatch struct {
	Questions  []string
	Diagnostic string
}

// QuestionGenerator produces interview questions from a résumé and job description.
type QuestionGenerator struct {
	provider models.LLMProvider
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewQuestionGenerator(provider models.LLMProvider, timeout time.Duration, logger *slog.Logger) *QuestionGenerator {
	return &QuestionGenerator{
		provider: provider,
		timeout:  timeout,
		logger:   loggerOrDefault(logger),
		now:      time.Now,
	}
}

// Generate asks the provider for req.Count questions. It never returns an
// error: an upstream failure yields an empty batch with a diagnostic.
func (g *QuestionGenerator) Generate(ctx context.Context, req QuestionRequest) QuestionBatch {
	randomizer := fmt.Sprintf("%d-%d", g.now().UnixNano(), 1000+rand.IntN(9000))
	g.logger.Info("question_generation.started",
		"count", req.Count,
		"difficulty", req.Difficulty,
		"resume_len", len(req.Resume),
		"jd_len", len(req.JD),
	)

	callCtx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Complete(callCtx, models.CompletionRequest{
		System:      questionSystemPrompt,
		User:        questionUserPrompt(req.Resume, req.JD, req.Count, req.Difficulty, randomizer),
		Temperature: questionTemperature,
	})
	if err != nil {
		err = classify(callCtx, err)
		g.logger.Error("question_generation.failed", "provider", g.provider.Name(), "error", err)
		return QuestionBatch{Diagnostic: err.Error()}
	}
	g.logger.Debug("question_generation.raw", "output", truncateString(raw, 2000))

	questions := ExtractQuestions(llmjson.Normalize(raw), req.Count)
	if len(questions) == 0 {
		g.logger.Warn("question_generation.empty", "provider", g.provider.Name())
		return QuestionBatch{Diagnostic: ErrInvalidResponse.Error() + ": no questions in model output"}
	}

	g.logger.Info("question_generation.completed", "provider", g.provider.Name(), "count", len(questions))
	return QuestionBatch{Questions: questions}
}

// ExtractQuestions normalizes every accepted reply shape into at most n
// question texts: an object with a "questions" list or string, a bare list
// of strings or objects, or plain newline-delimited text.
func ExtractQuestions(res llmjson.Result, n int) []string {
	if n <= 0 {
		return nil
	}

	var out []string
	switch {
	case !res.Parsed():
		out = splitLines(res.Raw())
	default:
		if obj, ok := res.Object(); ok {
			switch qs := obj["questions"].(type) {
			case []any:
				out = fromItems(qs)
			case string:
				out = splitLines(qs)
			}
		} else if arr, ok := res.Array(); ok {
			out = fromItems(arr)
		}
	}

	if len(out) > n {
		out = out[:n]
	}
	return out
}

func fromItems(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			text := llmjson.String(v["question"])
			if text == "" {
				text = llmjson.String(v["question_text"])
			}
			if s := strings.TrimSpace(text); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		if q := strings.Trim(ln, "- \t\r"); q != "" {
			out = append(out, q)
		}
	}
	return out
}
