// Package gemini implements speech-to-text and text-to-speech on the Google
// Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

const transcribePrompt = "Transcribe this interview answer verbatim in English. " +
	"Return only the spoken words, without timestamps, speaker labels or commentary. " +
	"If nothing intelligible is said, return an empty response."

const defaultMIMEType = "audio/webm"

// Options configures a Client. BaseURL is only overridden in tests.
type Options struct {
	APIKey    string
	BaseURL   string
	STTModel  string
	TTSModel  string
	Voice     string
	AudioDir  string
	URLPrefix string
}

// Client transcribes with a multimodal model and synthesizes with a TTS model.
type Client struct {
	client *genai.Client
	opts   Options
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if opts.AudioDir == "" {
		return nil, errors.New("audio directory is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, opts: opts}, nil
}

// Transcribe sends the recording inline together with a transcription prompt.
// An empty transcript is not an error; a silent answer is still an answer.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio is empty")
	}
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}
	temperature := float32(0)
	resp, err := c.client.Models.GenerateContent(ctx, c.opts.STTModel, contents,
		&genai.GenerateContentConfig{Temperature: &temperature})
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	if resp == nil {
		return "", errors.New("gemini returned nil response")
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Synthesize renders text with the configured prebuilt voice and writes
// <AudioDir>/<name>.wav.
func (c *Client) Synthesize(ctx context.Context, text, name string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text is empty")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.opts.TTSModel, genai.Text(text), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini synthesize: %w", err)
	}

	pcm := inlineAudio(resp)
	if len(pcm) == 0 {
		return "", errors.New("gemini returned no audio data")
	}

	file := name + ".wav"
	if err := writeFileAtomic(filepath.Join(c.opts.AudioDir, file), encodeWAV(pcm)); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return c.opts.URLPrefix + file, nil
}

func inlineAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tts-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
