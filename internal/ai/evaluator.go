package ai

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/kiranshivaraju/mockinterview/pkg/llmjson"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

const (
	evalTemperature = 0.2
	neutralScore    = 5
	neutralFeedback = "Unable to parse evaluator output; using neutral score."
)

// EvaluationRequest is one answer to be scored.
type EvaluationRequest struct {
	Question string
	Answer   string
	Resume   string
	JD       string
}

// Evaluator scores a single answer.
type Evaluator struct {
	provider models.LLMProvider
	timeout  time.Duration
	logger   *slog.Logger
}

func NewEvaluator(provider models.LLMProvider, timeout time.Duration, logger *slog.Logger) *Evaluator {
	return &Evaluator{provider: provider, timeout: timeout, logger: loggerOrDefault(logger)}
}

// Evaluate always returns a complete evaluation. Provider failures and
// unparseable replies fall back to a neutral score.
func (e *Evaluator) Evaluate(ctx context.Context, req EvaluationRequest) models.Evaluation {
	e.logger.Info("answer_evaluation.started", "answer_len", len(req.Answer))

	callCtx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.provider.Complete(callCtx, models.CompletionRequest{
		System:      evalSystemPrompt,
		User:        evalUserPrompt(req.Question, req.Answer, req.Resume, req.JD),
		Temperature: evalTemperature,
	})

	var obj map[string]any
	if err != nil {
		e.logger.Error("answer_evaluation.failed", "provider", e.provider.Name(), "error", classify(callCtx, err))
	} else if parsed, ok := llmjson.Normalize(raw).Object(); ok {
		obj = parsed
	} else {
		e.logger.Warn("answer_evaluation.unparsed", "provider", e.provider.Name(), "output", truncateString(raw, 500))
	}

	eval := NormalizeEvaluation(obj)
	e.logger.Info("answer_evaluation.completed", "score", eval.Score, "criteria_met", eval.CriteriaMet)
	return eval
}

// NormalizeEvaluation coerces a model reply into an Evaluation. A nil map
// yields the neutral default.
func NormalizeEvaluation(obj map[string]any) models.Evaluation {
	if obj == nil {
		obj = map[string]any{
			"score":             float64(neutralScore),
			"meets_requirement": false,
			"feedback":          neutralFeedback,
			"improvements":      []any{},
			"dimensions":        map[string]any{},
		}
	}

	score, ok := llmjson.Number(obj["score"])
	if !ok || math.IsNaN(score) || math.IsInf(score, 0) {
		score = neutralScore
	}
	percent := math.Max(0, math.Min(100, score/10*100))
	criteriaMet := llmjson.Bool(obj["meets_requirement"]) ||
		llmjson.Bool(obj["criteria_met"]) ||
		percent >= models.PassThreshold

	dims, _ := obj["dimensions"].(map[string]any)
	if dims == nil {
		dims = map[string]any{}
	}

	return models.Evaluation{
		Score:        clampRound(score, 0, 10),
		Feedback:     llmjson.String(obj["feedback"]),
		CriteriaMet:  criteriaMet,
		Improvements: llmjson.StringList(obj["improvements"]),
		Dimensions:   dims,
		Raw:          obj,
	}
}

// clampRound clamps v to [lo, hi] before rounding so huge model values
// cannot overflow the int conversion.
func clampRound(v float64, lo, hi int) int {
	return int(math.Round(math.Max(float64(lo), math.Min(float64(hi), v))))
}
