package ai_test

import (
	"context"
	"testing"

	"github.com/kiranshivaraju/mockinterview/internal/ai"
	"github.com/kiranshivaraju/mockinterview/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Gemini(t *testing.T) {
	cfg := config.AIConfig{
		Provider: "gemini",
		Gemini:   config.GeminiConfig{APIKey: "test-key", Model: "gemini-2.5-flash"},
	}
	p, err := ai.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
}

func TestNewProvider_OpenAI(t *testing.T) {
	cfg := config.AIConfig{
		Provider: "openai",
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
	}
	p, err := ai.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestNewProvider_Ollama(t *testing.T) {
	cfg := config.AIConfig{
		Provider: "ollama",
		Ollama:   config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3"},
	}
	p, err := ai.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := ai.NewProvider(context.Background(), config.AIConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())
}

func TestNewProvider_Unknown(t *testing.T) {
	cfg := config.AIConfig{Provider: "unknown-provider"}
	_, err := ai.NewProvider(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
	assert.Contains(t, err.Error(), "unknown-provider")
}

func TestNewProvider_Empty(t *testing.T) {
	_, err := ai.NewProvider(context.Background(), config.AIConfig{Provider: ""})
	require.Error(t, err)
}
