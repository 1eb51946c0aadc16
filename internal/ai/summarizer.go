package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/kiranshivaraju/mockinterview/pkg/llmjson"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

const summaryTemperature = 0.2

// SummaryRequest carries every evaluation recorded for a round.
type SummaryRequest struct {
	Evaluations []models.Evaluation
	Resume      string
	JD          string
}

// Summarizer turns a round's evaluations into a pass/fail summary. It does
// not persist anything.
type Summarizer struct {
	provider models.LLMProvider
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSummarizer(provider models.LLMProvider, timeout time.Duration, logger *slog.Logger) *Summarizer {
	return &Summarizer{provider: provider, timeout: timeout, logger: loggerOrDefault(logger)}
}

// evaluationDigest is the part of an evaluation sent back to the model.
type evaluationDigest struct {
	Score        int            `json:"score"`
	Feedback     string         `json:"feedback"`
	CriteriaMet  bool           `json:"criteria_met"`
	Improvements []string       `json:"improvements"`
	Dimensions   map[string]any `json:"dimensions"`
}

// Summarize always returns a summary. When the provider fails or its reply
// cannot be parsed, the score is the mean evaluation score scaled to 0-100.
func (s *Summarizer) Summarize(ctx context.Context, req SummaryRequest) models.RoundSummary {
	s.logger.Info("round_summary.started", "evaluations", len(req.Evaluations))

	digests := make([]evaluationDigest, 0, len(req.Evaluations))
	for _, e := range req.Evaluations {
		digests = append(digests, evaluationDigest{
			Score:        e.Score,
			Feedback:     e.Feedback,
			CriteriaMet:  e.CriteriaMet,
			Improvements: e.Improvements,
			Dimensions:   e.Dimensions,
		})
	}
	evalJSON, _ := json.Marshal(digests)

	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Complete(callCtx, models.CompletionRequest{
		System:      summarySystemPrompt,
		User:        summaryUserPrompt(string(evalJSON), req.Resume, req.JD),
		Temperature: summaryTemperature,
	})

	var obj map[string]any
	if err != nil {
		s.logger.Error("round_summary.failed", "provider", s.provider.Name(), "error", classify(callCtx, err))
	} else if parsed, ok := llmjson.Normalize(raw).Object(); ok {
		obj = parsed
	} else {
		s.logger.Warn("round_summary.unparsed", "provider", s.provider.Name(), "output", truncateString(raw, 500))
	}

	summary := NormalizeSummary(obj, req.Evaluations)
	s.logger.Info("round_summary.completed", "overall_score", summary.OverallScore, "pass", summary.Pass)
	return summary
}

// NormalizeSummary coerces a model reply into a RoundSummary. A nil map, or a
// reply without overall_score, falls back to the evaluation mean.
func NormalizeSummary(obj map[string]any, evals []models.Evaluation) models.RoundSummary {
	fallback := FallbackScore(evals)
	if obj == nil {
		pass := fallback >= models.PassThreshold
		return models.RoundSummary{
			OverallScore:      fallback,
			Pass:              pass,
			Strengths:         []string{},
			Gaps:              []string{},
			Recommendations:   []string{},
			TopicBreakdown:    []models.TopicScore{},
			EligibleForRound2: pass,
		}
	}

	overall := fallback
	if n, ok := llmjson.Number(obj["overall_score"]); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
		overall = clampRound(n, 0, 100)
	}

	pass := overall >= models.PassThreshold
	if v, present := obj["pass"]; present {
		pass = llmjson.Bool(v)
	}

	return models.RoundSummary{
		OverallScore:      overall,
		Pass:              pass,
		Strengths:         llmjson.StringList(obj["strengths"]),
		Gaps:              llmjson.StringList(obj["gaps"]),
		Recommendations:   llmjson.StringList(obj["recommendations"]),
		TopicBreakdown:    topicBreakdown(obj["topic_breakdown"]),
		EligibleForRound2: pass,
	}
}

// FallbackScore is the mean of 0-10 scores scaled to 0-100, or 0 when there
// are no evaluations.
func FallbackScore(evals []models.Evaluation) int {
	if len(evals) == 0 {
		return 0
	}
	total := 0
	for _, e := range evals {
		total += e.Score
	}
	mean := float64(total) / float64(len(evals))
	return int(math.Round(mean / 10 * 100))
}

func topicBreakdown(v any) []models.TopicScore {
	items, _ := v.([]any)
	out := make([]models.TopicScore, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		topic := llmjson.String(m["topic"])
		if topic == "" {
			continue
		}
		avg, _ := llmjson.Number(m["avg_score"])
		out = append(out, models.TopicScore{Topic: topic, AvgScore: avg})
	}
	return out
}
