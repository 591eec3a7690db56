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

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clerkwell/paperwork-hub/internal/extraction"
	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/messaging"
	"github.com/clerkwell/paperwork-hub/internal/records"
	"github.com/clerkwell/paperwork-hub/internal/security"
	"github.com/clerkwell/paperwork-hub/internal/storage"
	"github.com/clerkwell/paperwork-hub/internal/transcription"
)

// maxAudioBody caps audio uploads at 25 MiB, the hosted API's own limit.
const maxAudioBody = 25 << 20

// Extractor turns a clinical note into field candidates. Nil when the hub
// runs without a hosted AI credential.
type Extractor interface {
	Extract(ctx context.Context, noteText string, fieldLabels []string) (*extraction.Result, error)
}

// ExtractHandler handles note extraction and audio transcription requests.
type ExtractHandler struct {
	extractor   Extractor
	transcriber transcription.Transcriber
	registry    *forms.Registry
	notes       *storage.NotesStore
	audit       *storage.AuditStore
	events      *messaging.Service
}

// NewExtractHandler creates the extraction endpoints handler. extractor and
// transcriber may be nil; their endpoints then answer 503.
func NewExtractHandler(extractor Extractor, transcriber transcription.Transcriber, registry *forms.Registry, notes *storage.NotesStore, audit *storage.AuditStore, events *messaging.Service) *ExtractHandler {
	return &ExtractHandler{
		extractor:   extractor,
		transcriber: transcriber,
		registry:    registry,
		notes:       notes,
		audit:       audit,
		events:      events,
	}
}

// ExtractRequest is the body for POST /api/extract.
type ExtractRequest struct {
	NoteText string `json:"note_text"`
}

// ExtractResponse carries the extraction outcome.
type ExtractResponse struct {
	NoteID     string            `json:"note_id"`
	Model      string            `json:"model"`
	NoteChars  int               `json:"note_chars"`
	Candidates []forms.Candidate `json:"candidates"`
}

// HandleExtract handles POST /api/extract.
func (h *ExtractHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction is not configured (no API key)")
		return
	}

	var req ExtractRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.NoteText) == "" {
		writeError(w, http.StatusBadRequest, "note_text is required")
		return
	}

	note := records.NewNote(req.NoteText, records.SourceTyped)
	if err := h.notes.Insert(note); err != nil {
		logging.LogError(err, "Failed to store note")
		writeError(w, http.StatusInternalServerError, "failed to store note")
		return
	}

	result, err := h.extractor.Extract(r.Context(), req.NoteText, registryLabels(h.registry))
	if err != nil {
		logging.LogError(err, "Extraction failed", zap.String("note_id", note.ID))
		writeError(w, http.StatusBadGateway, "extraction failed")
		return
	}

	ext := records.NewExtraction(note.ID, result.Model, result.Candidates)
	if err := h.notes.SaveExtraction(ext); err != nil {
		logging.LogError(err, "Failed to store extraction", zap.String("note_id", note.ID))
		writeError(w, http.StatusInternalServerError, "failed to store extraction")
		return
	}

	recordAudit(h.audit, records.ActionExtractionCompleted, "extraction", ext.ID,
		fmt.Sprintf("model=%s candidates=%d note_chars=%d", result.Model, len(result.Candidates), result.NoteChars))
	logPublish(h.events.PublishNoteCreated(note))
	logPublish(h.events.PublishExtractionCompleted(ext))

	logging.Sugar.Infow("Note extracted via API",
		"note_id", note.ID,
		"model", result.Model,
		"candidates", len(result.Candidates),
	)

	writeJSON(w, http.StatusOK, ExtractResponse{
		NoteID:     note.ID,
		Model:      result.Model,
		NoteChars:  result.NoteChars,
		Candidates: result.Candidates,
	})
}

// TranscribeResponse carries the transcription outcome.
type TranscribeResponse struct {
	NoteID          string    `json:"note_id"`
	TranscribedText string    `json:"transcribed_text"`
	Filename        string    `json:"filename"`
	Language        string    `json:"language,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// HandleTranscribe handles POST /api/transcribe (multipart, field
// "audio_file"). The transcript is stored as a note with source=uploaded.
func (h *ExtractHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription is not configured (no API key)")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBody)
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio_file upload is required")
		return
	}
	defer func() { _ = file.Close() }()

	if err := security.ValidateAudioFilename(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio upload")
		return
	}

	result, err := h.transcriber.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		if errors.Is(err, transcription.ErrNoSpeech) {
			writeError(w, http.StatusUnprocessableEntity, "no speech detected in audio")
			return
		}
		logging.LogError(err, "Transcription failed", zap.String("filename", security.SanitizeLogInput(header.Filename)))
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	note := records.NewNote(result.Text, records.SourceUploaded)
	if err := h.notes.Insert(note); err != nil {
		logging.LogError(err, "Failed to store transcribed note")
		writeError(w, http.StatusInternalServerError, "failed to store note")
		return
	}

	recordAudit(h.audit, records.ActionAudioTranscribed, "note", note.ID,
		fmt.Sprintf("filename=%s transcript_chars=%d", security.SanitizeLogInput(header.Filename), len(result.Text)))
	logPublish(h.events.PublishNoteCreated(note))
	logPublish(h.events.PublishAudioTranscribed(&messaging.TranscribedEvent{
		NoteID:          note.ID,
		Source:          string(records.SourceUploaded),
		Text:            result.Text,
		DurationSeconds: result.DurationSeconds,
	}))

	logging.Sugar.Infow("Audio transcribed via API",
		"note_id", note.ID,
		"filename", security.SanitizeLogInput(header.Filename),
		"transcript_chars", len(result.Text),
	)

	writeJSON(w, http.StatusOK, TranscribeResponse{
		NoteID:          note.ID,
		TranscribedText: result.Text,
		Filename:        header.Filename,
		Language:        result.Language,
		DurationSeconds: result.DurationSeconds,
		Timestamp:       time.Now().UTC(),
	})
}

// recordAudit appends an audit event; failures are logged, never fatal.
func recordAudit(store *storage.AuditStore, action, entityType, entityID, detail string) {
	if store == nil {
		return
	}
	if err := store.Append(records.NewAuditEvent(action, entityType, entityID, detail)); err != nil {
		logging.LogError(err, "Failed to append audit event", zap.String("action", action))
	}
}

// logPublish logs event publishing failures without failing the request.
func logPublish(err error) {
	if err != nil {
		logging.LogError(err, "Failed to publish event")
	}
}
