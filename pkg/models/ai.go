// Package models contains shared data models used across the mock interview codebase.
package models

import "context"

// LLMProvider is the interface every language-model integration implements.
// Never call a specific vendor directly; always inject this interface.
type LLMProvider interface {
	// Complete sends a system + user prompt pair and returns the raw text reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string
}

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
}
