// Package speech converts candidate audio to text and question text to audio.
package speech

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/mockinterview/internal/config"
	"github.com/kiranshivaraju/mockinterview/internal/speech/gemini"
	"github.com/kiranshivaraju/mockinterview/internal/speech/mock"
)

// AudioURLPrefix is the public path under which synthesized files are served.
const AudioURLPrefix = "/static/audio/"

// Transcriber turns a recorded answer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer renders text to an audio file and returns its public URL path.
// name is used as the file stem; calling twice with the same name overwrites.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, name string) (string, error)
}

// Engine is a backend that does both directions.
type Engine interface {
	Transcriber
	Synthesizer
}

// New builds the engine selected by cfg.Provider.
func New(ctx context.Context, cfg config.SpeechConfig, apiKey string) (Engine, error) {
	switch cfg.Provider {
	case "gemini":
		eng, err := gemini.New(ctx, gemini.Options{
			APIKey:    apiKey,
			STTModel:  cfg.STTModel,
			TTSModel:  cfg.TTSModel,
			Voice:     cfg.Voice,
			AudioDir:  cfg.AudioDir,
			URLPrefix: AudioURLPrefix,
		})
		if err != nil {
			return nil, err
		}
		return eng, nil
	case "mock":
		return mock.New(cfg.AudioDir, AudioURLPrefix), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
	}
}
