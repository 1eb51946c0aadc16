package ai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/mockinterview/internal/ai/gemini"
	"github.com/kiranshivaraju/mockinterview/internal/ai/mock"
	"github.com/kiranshivaraju/mockinterview/internal/ai/ollama"
	"github.com/kiranshivaraju/mockinterview/internal/ai/openai"
	"github.com/kiranshivaraju/mockinterview/internal/config"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// NewProvider constructs the language-model provider named in config.
// Called once at server startup.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewProvider(ctx, cfg.Gemini, "")
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of gemini, openai, ollama, mock", cfg.Provider)
	}
}
