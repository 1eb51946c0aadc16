// Package gemini implements models.LLMProvider on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/mockinterview/internal/config"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
	"google.golang.org/genai"
)

const maxOutputTokens = 4096

// Provider sends completions to a Gemini model.
type Provider struct {
	client *genai.Client
	model  string
}

// NewProvider builds a Gemini client for the configured model. baseURL is
// optional and only overridden in tests.
func NewProvider(ctx context.Context, cfg config.GeminiConfig, baseURL string) (*Provider, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{client: client, model: cfg.Model}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	temperature := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxOutputTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("gemini returned nil response")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned no text content")
	}
	return text, nil
}

var _ models.LLMProvider = (*Provider)(nil)
