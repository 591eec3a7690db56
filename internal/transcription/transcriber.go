/*
Copyright (c) 2025 Clerkwell Health

Licensed under the AGPLv3 License.
This file is part of the paperwork-hub.
*/

// Package transcription converts clinical audio into text for the note
// pipeline. The hosted Whisper implementation lives in openai.go; callers
// depend on the Transcriber interface so tests can stub it.
package transcription

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the model produced an empty transcript
var ErrNoSpeech = errors.New("no speech detected in audio")

// Result contains the outcome of one transcription call
type Result struct {
	Text            string  `json:"text"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// Transcriber defines the interface for speech-to-text services
type Transcriber interface {
	// Transcribe converts an encoded audio file (WAV, MP3, ...) to text.
	// The filename carries the container hint for the upstream API.
	Transcribe(ctx context.Context, audio []byte, filename string) (*Result, error)
}
