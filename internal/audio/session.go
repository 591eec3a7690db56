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
	"bytes"
	"strings"
	"sync"
	"time"
)

// Segment is one transcribed slice of a session's audio stream
type Segment struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Status is a point-in-time snapshot of a session
type Status struct {
	SessionID        string    `json:"session_id"`
	Recording        bool      `json:"is_recording"`
	CreatedAt        time.Time `json:"created_at"`
	LastActivity     time.Time `json:"last_activity"`
	RecordingSeconds float64   `json:"recording_seconds"`
	SegmentCount     int       `json:"segment_count"`
	FullTranscript   string    `json:"full_transcription"`
	BufferedBytes    int       `json:"audio_buffer_bytes"`
	BufferedSeconds  float64   `json:"audio_buffer_seconds"`
}

// UpdateBatch carries the segments transcribed since the last poll. Each
// segment is delivered exactly once; the full transcript is always included.
type UpdateBatch struct {
	SessionID      string    `json:"session_id"`
	Recording      bool      `json:"is_recording"`
	NewSegments    []Segment `json:"new_segments"`
	FullTranscript string    `json:"full_transcription"`
	SegmentCount   int       `json:"segment_count"`
}

// Session accumulates streamed PCM audio and its transcription segments.
// All state is guarded by mu; the manager coordinates transcription so the
// lock is never held across network calls.
type Session struct {
	ID        string
	CreatedAt time.Time

	bytesPerSecond int

	mu             sync.Mutex
	recording      bool
	recordingStart time.Time
	recordingEnd   time.Time
	lastActivity   time.Time
	buffer         bytes.Buffer
	segments       []Segment
	pending        []Segment
	transcript     strings.Builder
}

func newSession(id string, bytesPerSecond int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             id,
		CreatedAt:      now,
		bytesPerSecond: bytesPerSecond,
		lastActivity:   now,
	}
}

// startRecording marks the session as live
func (s *Session) startRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recording = true
	s.recordingStart = time.Now().UTC()
	s.recordingEnd = time.Time{}
	s.lastActivity = time.Now().UTC()
}

// stopRecording ends the live phase; buffered audio below the chunk
// threshold stays buffered until the caller flushes or the session closes
func (s *Session) stopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recording = false
	s.recordingEnd = time.Now().UTC()
	s.lastActivity = time.Now().UTC()
}

// appendChunk adds PCM bytes to the buffer. When the buffered size reaches
// threshold it returns the drained buffer for transcription; otherwise it
// returns nil and the new buffered size.
func (s *Session) appendChunk(pcm []byte, threshold int) (block []byte, buffered int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return nil, s.buffer.Len(), ErrNotRecording
	}

	s.buffer.Write(pcm)
	s.lastActivity = time.Now().UTC()

	if s.buffer.Len() < threshold {
		return nil, s.buffer.Len(), nil
	}

	block = make([]byte, s.buffer.Len())
	copy(block, s.buffer.Bytes())
	s.buffer.Reset()
	return block, 0, nil
}

// drainBuffer empties the buffer regardless of size, for a final flush
func (s *Session) drainBuffer() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffer.Len() == 0 {
		return nil
	}

	block := make([]byte, s.buffer.Len())
	copy(block, s.buffer.Bytes())
	s.buffer.Reset()
	s.lastActivity = time.Now().UTC()
	return block
}

// addSegment records a transcribed segment and queues it for the next
// Updates poll
func (s *Session) addSegment(text string, confidence float64) Segment {
	segment := Segment{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments = append(s.segments, segment)
	s.pending = append(s.pending, segment)
	if s.transcript.Len() > 0 {
		s.transcript.WriteString(" ")
	}
	s.transcript.WriteString(segment.Text)
	s.lastActivity = time.Now().UTC()

	return segment
}

// snapshot returns the current session status
func (s *Session) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		SessionID:        s.ID,
		Recording:        s.recording,
		CreatedAt:        s.CreatedAt,
		LastActivity:     s.lastActivity,
		RecordingSeconds: s.recordingSecondsLocked(),
		SegmentCount:     len(s.segments),
		FullTranscript:   s.transcript.String(),
		BufferedBytes:    s.buffer.Len(),
		BufferedSeconds:  s.bufferedSecondsLocked(),
	}
}

// drainUpdates returns segments added since the previous call
func (s *Session) drainUpdates() UpdateBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := UpdateBatch{
		SessionID:      s.ID,
		Recording:      s.recording,
		NewSegments:    s.pending,
		FullTranscript: s.transcript.String(),
		SegmentCount:   len(s.segments),
	}
	s.pending = nil

	if batch.NewSegments == nil {
		batch.NewSegments = []Segment{}
	}
	return batch
}

// idleSince reports the last activity time for janitor eviction
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) recordingSecondsLocked() float64 {
	switch {
	case s.recording:
		return time.Since(s.recordingStart).Seconds()
	case !s.recordingEnd.IsZero():
		return s.recordingEnd.Sub(s.recordingStart).Seconds()
	default:
		return 0
	}
}

func (s *Session) bufferedSecondsLocked() float64 {
	if s.bytesPerSecond <= 0 {
		return 0
	}
	return float64(s.buffer.Len()) / float64(s.bytesPerSecond)
}
