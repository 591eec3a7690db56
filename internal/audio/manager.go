/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/records"
	"github.com/clerkwell/paperwork-hub/internal/transcription"
)

var (
	// ErrSessionNotFound is returned for operations on unknown sessions
	ErrSessionNotFound = errors.New("audio session not found")

	// ErrTooManySessions is returned when the session cap is reached
	ErrTooManySessions = errors.New("maximum audio sessions reached")

	// ErrNotRecording is returned when audio arrives outside a recording
	ErrNotRecording = errors.New("session is not recording")
)

// Defaults for streaming audio; clients send 16 kHz 16-bit mono PCM
const (
	DefaultSampleRate    = 16000
	DefaultBitsPerSample = 16
	DefaultChunkSeconds  = 3.0
	DefaultMaxSessions   = 100
	DefaultIdleTimeout   = 10 * time.Minute

	janitorInterval = 30 * time.Second
)

// Chunk processing outcomes
const (
	ChunkBuffering = "buffering"
	ChunkProcessed = "processed"
	ChunkNoSpeech  = "no_speech"
)

// ChunkResult reports what happened to one incoming audio chunk
type ChunkResult struct {
	SessionID       string  `json:"session_id"`
	Status          string  `json:"status"`
	Text            string  `json:"text,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	BufferedBytes   int     `json:"buffer_bytes"`
	BufferedSeconds float64 `json:"buffer_seconds"`
}

// Config holds the audio pipeline settings
type Config struct {
	SampleRate    int
	BitsPerSample int
	ChunkSeconds  float64
	MaxSessions   int
	IdleTimeout   time.Duration
}

// Manager owns realtime audio sessions: it buffers streamed PCM per
// session, hands full chunks to the transcriber, and evicts idle sessions
type Manager struct {
	transcriber transcription.Transcriber
	cfg         Config

	mu       sync.RWMutex
	sessions map[string]*Session

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// NewManager creates a session manager and starts its cleanup goroutine.
// Zero config fields fall back to the package defaults.
func NewManager(transcriber transcription.Transcriber, cfg Config) *Manager {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BitsPerSample <= 0 {
		cfg.BitsPerSample = DefaultBitsPerSample
	}
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = DefaultChunkSeconds
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	m := &Manager{
		transcriber: transcriber,
		cfg:         cfg,
		sessions:    make(map[string]*Session),
		janitorStop: make(chan struct{}),
	}

	go m.cleanupSessions()

	return m
}

// CreateSession registers a new session and returns it
func (m *Manager) CreateSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("%w: %d", ErrTooManySessions, m.cfg.MaxSessions)
	}

	session := newSession(records.NewID(), m.bytesPerSecond())
	m.sessions[session.ID] = session

	logging.LogAudioProcessing(session.ID, "session_created")
	return session, nil
}

// StartRecording begins the live phase for a session
func (m *Manager) StartRecording(sessionID string) (Status, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return Status{}, err
	}

	session.startRecording()
	logging.LogAudioProcessing(sessionID, "recording_started")
	return session.snapshot(), nil
}

// StopRecording ends the live phase and returns the final status snapshot
func (m *Manager) StopRecording(sessionID string) (Status, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return Status{}, err
	}

	session.stopRecording()
	logging.LogAudioProcessing(sessionID, "recording_stopped",
		zap.Int("segments", session.snapshot().SegmentCount))
	return session.snapshot(), nil
}

// ProcessChunk appends PCM audio to the session buffer. Once roughly
// ChunkSeconds of audio has accumulated, the buffer is wrapped in a WAV
// container and transcribed; silence clears the buffer without a segment.
func (m *Manager) ProcessChunk(ctx context.Context, sessionID string, pcm []byte) (*ChunkResult, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	block, buffered, err := session.appendChunk(pcm, m.thresholdBytes())
	if err != nil {
		return nil, err
	}

	if block == nil {
		return &ChunkResult{
			SessionID:       sessionID,
			Status:          ChunkBuffering,
			BufferedBytes:   buffered,
			BufferedSeconds: PCMDuration(buffered, m.cfg.SampleRate, m.cfg.BitsPerSample, 1),
		}, nil
	}

	return m.transcribeBlock(ctx, session, block)
}

// Flush transcribes whatever is buffered, regardless of the chunk
// threshold. Used when a recording stops with a partial chunk pending.
func (m *Manager) Flush(ctx context.Context, sessionID string) (*ChunkResult, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	block := session.drainBuffer()
	if block == nil {
		return &ChunkResult{SessionID: sessionID, Status: ChunkBuffering}, nil
	}

	return m.transcribeBlock(ctx, session, block)
}

// transcribeBlock runs one buffered block through the transcriber and
// records the resulting segment. The session lock is not held here.
func (m *Manager) transcribeBlock(ctx context.Context, session *Session, block []byte) (*ChunkResult, error) {
	wav := WrapPCM(block, m.cfg.SampleRate, m.cfg.BitsPerSample, 1)

	logging.LogAudioProcessing(session.ID, "transcribing_chunk",
		zap.Int("pcm_bytes", len(block)))

	result, err := m.transcriber.Transcribe(ctx, wav, "chunk.wav")
	if err != nil {
		if errors.Is(err, transcription.ErrNoSpeech) {
			return &ChunkResult{SessionID: session.ID, Status: ChunkNoSpeech}, nil
		}
		return nil, fmt.Errorf("chunk transcription failed: %w", err)
	}

	segment := session.addSegment(result.Text, result.Confidence)

	return &ChunkResult{
		SessionID:  session.ID,
		Status:     ChunkProcessed,
		Text:       segment.Text,
		Confidence: segment.Confidence,
	}, nil
}

// Status returns a snapshot of the session
func (m *Manager) Status(sessionID string) (Status, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return Status{}, err
	}
	return session.snapshot(), nil
}

// Updates drains segments transcribed since the previous call
func (m *Manager) Updates(sessionID string) (UpdateBatch, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return UpdateBatch{}, err
	}
	return session.drainUpdates(), nil
}

// CloseSession removes a session and its buffered audio
func (m *Manager) CloseSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	delete(m.sessions, sessionID)
	logging.LogAudioProcessing(sessionID, "session_closed")
	return nil
}

// ActiveSessions returns the IDs of all live sessions
func (m *Manager) ActiveSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the janitor and drops all sessions
func (m *Manager) Close() {
	m.janitorOnce.Do(func() {
		close(m.janitorStop)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session)
}

// get looks up a session by ID
func (m *Manager) get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// cleanupSessions removes sessions idle past the configured timeout
func (m *Manager) cleanupSessions() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.janitorStop:
			return
		case <-ticker.C:
			now := time.Now().UTC()

			m.mu.Lock()
			for id, session := range m.sessions {
				if now.Sub(session.idleSince()) > m.cfg.IdleTimeout {
					logging.LogAudioProcessing(id, "evicted_idle")
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// thresholdBytes converts the chunk duration into a buffer size
func (m *Manager) thresholdBytes() int {
	return int(m.cfg.ChunkSeconds * float64(m.bytesPerSecond()))
}

func (m *Manager) bytesPerSecond() int {
	return m.cfg.SampleRate * (m.cfg.BitsPerSample / 8)
}
