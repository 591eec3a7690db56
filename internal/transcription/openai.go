/*
Copyright (c) 2025 Clerkwell Health

Licensed under the AGPLv3 License.
This file is part of the paperwork-hub.
*/

package transcription

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"go.uber.org/zap"

	"github.com/clerkwell/paperwork-hub/internal/logging"
)

const (
	// DefaultModel is the hosted Whisper model used when none is configured
	DefaultModel = "whisper-1"

	// DefaultConfidence is reported when the API returns no per-call
	// confidence, matching what Whisper JSON responses omit
	DefaultConfidence = 0.9

	// clinicalPrompt biases the model toward UK clinical vocabulary
	clinicalPrompt = "Clinical dictation: NHS number, presenting complaint, diagnosis, medication doses (mg, ml, micrograms), GP referral, discharge summary."
)

// contentTypes maps upload extensions to MIME types for the multipart part
var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
}

// OpenAIConfig holds the settings for the hosted transcription client
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string // empty means api.openai.com
	Model    string
	Language string // ISO-639-1 hint, e.g. "en"
	Timeout  time.Duration
}

// OpenAIClient transcribes audio through the OpenAI Audio API
type OpenAIClient struct {
	client   openai.Client
	model    string
	language string
	timeout  time.Duration
}

// NewOpenAIClient creates a transcription client. The API key is required.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription client requires an API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClient{
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
		timeout:  cfg.Timeout,
	}, nil
}

// Transcribe sends the audio to the hosted model and returns the transcript.
// Empty model output maps to ErrNoSpeech so callers can treat silence as a
// normal condition rather than a failure.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (*Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio data is empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	logging.LogExtraction(c.model, "transcribe_request")

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(audio), filename, contentTypeFor(filename)),
		Model:          openai.AudioModel(c.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		Prompt:         param.NewOpt(clinicalPrompt),
	}
	if c.language != "" {
		params.Language = param.NewOpt(c.language)
	}

	response, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	if response == nil {
		return nil, fmt.Errorf("transcription API returned nil response")
	}

	text := strings.TrimSpace(response.Text)
	if text == "" {
		return nil, ErrNoSpeech
	}

	language := response.Language
	if language == "" {
		language = c.language
	}

	logging.LogExtraction(c.model, "transcribe_complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("transcript_chars", len(text)))

	return &Result{
		Text:            text,
		Language:        language,
		DurationSeconds: response.Duration,
		Confidence:      DefaultConfidence,
	}, nil
}

// contentTypeFor returns the MIME type for an audio filename, defaulting
// to WAV for unknown extensions
func contentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "audio/wav"
}
