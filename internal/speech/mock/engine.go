// Package mock provides an offline speech engine for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Engine echoes audio bytes back as the transcript and writes the question
// text to a placeholder file on synthesis.
type Engine struct {
	TranscribeFunc func(ctx context.Context, audio []byte, mimeType string) (string, error)
	SynthesizeFunc func(ctx context.Context, text, name string) (string, error)

	audioDir  string
	urlPrefix string

	mu          sync.Mutex
	synthesized []string
}

func New(audioDir, urlPrefix string) *Engine {
	return &Engine{audioDir: audioDir, urlPrefix: urlPrefix}
}

func (e *Engine) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if e.TranscribeFunc != nil {
		return e.TranscribeFunc(ctx, audio, mimeType)
	}
	return string(audio), nil
}

func (e *Engine) Synthesize(ctx context.Context, text, name string) (string, error) {
	e.mu.Lock()
	e.synthesized = append(e.synthesized, name)
	e.mu.Unlock()

	if e.SynthesizeFunc != nil {
		return e.SynthesizeFunc(ctx, text, name)
	}
	file := name + ".txt"
	if e.audioDir != "" {
		if err := os.MkdirAll(e.audioDir, 0o755); err != nil {
			return "", fmt.Errorf("create audio dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(e.audioDir, file), []byte(text), 0o644); err != nil {
			return "", fmt.Errorf("write audio: %w", err)
		}
	}
	return e.urlPrefix + file, nil
}

// Synthesized returns the names passed to Synthesize so far.
func (e *Engine) Synthesized() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.synthesized...)
}
