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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clerkwell/paperwork-hub/internal/audio"
	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/messaging"
	"github.com/clerkwell/paperwork-hub/internal/records"
	"github.com/clerkwell/paperwork-hub/internal/security"
	"github.com/clerkwell/paperwork-hub/internal/storage"
	"github.com/clerkwell/paperwork-hub/internal/transcription"
)

// upgrader accepts any origin: the hub serves LAN dashboards that connect
// from their own local addresses.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AudioHandler exposes realtime audio sessions over REST and WebSocket.
// A nil manager means no transcription backend is configured; the
// endpoints then answer 503.
type AudioHandler struct {
	manager *audio.Manager
	notes   *storage.NotesStore
	audit   *storage.AuditStore
	events  *messaging.Service
}

// NewAudioHandler creates the realtime audio endpoints handler.
func NewAudioHandler(manager *audio.Manager, notes *storage.NotesStore, audit *storage.AuditStore, events *messaging.Service) *AudioHandler {
	return &AudioHandler{
		manager: manager,
		notes:   notes,
		audit:   audit,
		events:  events,
	}
}

// HandleSessions handles POST /api/audio/sessions.
func (h *AudioHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.manager == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime audio is not configured (no API key)")
		return
	}

	session, err := h.manager.CreateSession()
	if err != nil {
		writeError(w, audioStatusFor(err), err.Error())
		return
	}

	logging.Sugar.Infow("🎙️ Audio session created", "session_id", session.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"status":     "session_created",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleSessionByID routes /api/audio/sessions/{id} and its sub-actions
// start, stop, status, and updates.
func (h *AudioHandler) HandleSessionByID(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime audio is not configured (no API key)")
		return
	}

	sessionID := pathSegment(r.URL.Path, "/api/audio/sessions/", 0)
	action := pathSegment(r.URL.Path, "/api/audio/sessions/", 1)
	if err := security.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case r.Method == http.MethodDelete && action == "":
		h.closeSession(w, sessionID)
	case r.Method == http.MethodPost && action == "start":
		h.startRecording(w, sessionID)
	case r.Method == http.MethodPost && action == "stop":
		h.stopRecording(w, r, sessionID)
	case r.Method == http.MethodGet && action == "status":
		h.sessionStatus(w, sessionID)
	case r.Method == http.MethodGet && action == "updates":
		h.sessionUpdates(w, sessionID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *AudioHandler) startRecording(w http.ResponseWriter, sessionID string) {
	status, err := h.manager.StartRecording(sessionID)
	if err != nil {
		writeError(w, audioStatusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": status.SessionID,
		"status":     "recording_started",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *AudioHandler) stopRecording(w http.ResponseWriter, r *http.Request, sessionID string) {
	final, status, err := h.finishRecording(r.Context(), sessionID)
	if err != nil {
		writeError(w, audioStatusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":          sessionID,
		"status":              "recording_stopped",
		"final_transcription": final,
		"segment_count":       status.SegmentCount,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *AudioHandler) sessionStatus(w http.ResponseWriter, sessionID string) {
	status, err := h.manager.Status(sessionID)
	if err != nil {
		writeError(w, audioStatusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *AudioHandler) sessionUpdates(w http.ResponseWriter, sessionID string) {
	batch, err := h.manager.Updates(sessionID)
	if err != nil {
		writeError(w, audioStatusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *AudioHandler) closeSession(w http.ResponseWriter, sessionID string) {
	status := "cleaned_up"
	if err := h.manager.CloseSession(sessionID); err != nil {
		if !errors.Is(err, audio.ErrSessionNotFound) {
			logging.LogError(err, "Failed to close audio session",
				zap.String("session_id", security.SanitizeLogInput(sessionID)))
			writeError(w, http.StatusInternalServerError, "failed to close session")
			return
		}
		status = "not_found"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// finishRecording stops the live phase, flushes any partial chunk, and
// persists the transcript as a realtime note when one exists.
func (h *AudioHandler) finishRecording(ctx context.Context, sessionID string) (string, audio.Status, error) {
	if _, err := h.manager.StopRecording(sessionID); err != nil {
		return "", audio.Status{}, err
	}
	if _, err := h.manager.Flush(ctx, sessionID); err != nil && !errors.Is(err, transcription.ErrNoSpeech) {
		logging.LogError(err, "Final flush transcription failed",
			zap.String("session_id", security.SanitizeLogInput(sessionID)))
	}

	status, err := h.manager.Status(sessionID)
	if err != nil {
		return "", audio.Status{}, err
	}

	final := strings.TrimSpace(status.FullTranscript)
	if final != "" {
		h.persistTranscript(sessionID, final, status.RecordingSeconds)
	}
	return final, status, nil
}

// persistTranscript stores the session transcript as a note. Failures are
// logged, not surfaced: the caller already has the text.
func (h *AudioHandler) persistTranscript(sessionID, text string, seconds float64) {
	note := records.NewNote(text, records.SourceRealtime)
	if err := h.notes.Insert(note); err != nil {
		logging.LogError(err, "Failed to store realtime note",
			zap.String("session_id", security.SanitizeLogInput(sessionID)))
		return
	}

	recordAudit(h.audit, records.ActionAudioTranscribed, "note", note.ID,
		fmt.Sprintf("session_id=%s transcript_chars=%d", sessionID, len(text)))
	logPublish(h.events.PublishNoteCreated(note))
	logPublish(h.events.PublishAudioTranscribed(&messaging.TranscribedEvent{
		NoteID:          note.ID,
		SessionID:       sessionID,
		Source:          string(records.SourceRealtime),
		Text:            text,
		DurationSeconds: seconds,
	}))

	logging.Sugar.Infow("Realtime transcript stored",
		"session_id", sessionID,
		"note_id", note.ID,
		"transcript_chars", len(text),
	)
}

// wsControl is a client control frame. Action is preferred; Type is
// accepted as an alias for older dashboard builds.
type wsControl struct {
	Type      string `json:"type,omitempty"`
	Action    string `json:"action,omitempty"`
	AudioData string `json:"audio_data,omitempty"`
}

// HandleWebSocket handles /ws/audio/{session_id}. Binary frames carry raw
// PCM audio; text frames carry JSON control messages. The session is
// closed when the socket closes.
func (h *AudioHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime audio is not configured (no API key)")
		return
	}

	sessionID := pathSegment(r.URL.Path, "/ws/audio/", 0)
	if err := security.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.manager.Status(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "audio session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogError(err, "WebSocket upgrade failed",
			zap.String("session_id", security.SanitizeLogInput(sessionID)))
		return
	}
	defer conn.Close()

	logging.Sugar.Infow("🎙️ WebSocket audio stream opened", "session_id", sessionID)
	h.serveStream(r.Context(), conn, sessionID)
}

func (h *AudioHandler) serveStream(ctx context.Context, conn *websocket.Conn, sessionID string) {
	defer func() {
		if err := h.manager.CloseSession(sessionID); err == nil {
			logging.Sugar.Infow("Audio session cleaned up", "session_id", sessionID)
		}
	}()

	conn.SetReadLimit(maxJSONBody)

	wsSend(conn, map[string]interface{}{
		"type":       "connection_established",
		"session_id": sessionID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Sugar.Warnw("WebSocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			h.streamChunk(ctx, conn, sessionID, payload)
		case websocket.TextMessage:
			h.streamControl(ctx, conn, sessionID, payload)
		}
	}
}

// streamChunk feeds PCM into the session and pushes any freshly
// transcribed segments back over the socket.
func (h *AudioHandler) streamChunk(ctx context.Context, conn *websocket.Conn, sessionID string, pcm []byte) {
	result, err := h.manager.ProcessChunk(ctx, sessionID, pcm)
	if err != nil {
		wsError(conn, err.Error())
		return
	}

	wsSend(conn, map[string]interface{}{"type": "audio_processed", "result": result})

	batch, err := h.manager.Updates(sessionID)
	if err != nil || len(batch.NewSegments) == 0 {
		return
	}
	wsSend(conn, map[string]interface{}{"type": "transcription_update", "data": batch})
}

func (h *AudioHandler) streamControl(ctx context.Context, conn *websocket.Conn, sessionID string, payload []byte) {
	var msg wsControl
	if err := json.Unmarshal(payload, &msg); err != nil {
		wsError(conn, "invalid JSON in control message")
		return
	}

	action := msg.Action
	if action == "" {
		action = msg.Type
	}

	switch action {
	case "start_recording":
		status, err := h.manager.StartRecording(sessionID)
		if err != nil {
			wsError(conn, err.Error())
			return
		}
		wsSend(conn, map[string]interface{}{"type": "recording_started", "result": status})

	case "stop_recording":
		final, status, err := h.finishRecording(ctx, sessionID)
		if err != nil {
			wsError(conn, err.Error())
			return
		}
		wsSend(conn, map[string]interface{}{
			"type": "recording_stopped",
			"result": map[string]interface{}{
				"session_id":          sessionID,
				"final_transcription": final,
				"segment_count":       status.SegmentCount,
			},
		})

	case "get_status":
		status, err := h.manager.Status(sessionID)
		if err != nil {
			wsError(conn, err.Error())
			return
		}
		wsSend(conn, map[string]interface{}{"type": "session_status", "data": status})

	case "audio_chunk":
		if msg.AudioData == "" {
			wsError(conn, "audio_data is required")
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(msg.AudioData)
		if err != nil {
			wsError(conn, "invalid base64 audio_data")
			return
		}
		h.streamChunk(ctx, conn, sessionID, pcm)

	default:
		wsError(conn, fmt.Sprintf("unknown action: %s", security.SanitizeLogInput(action)))
	}
}

func wsSend(conn *websocket.Conn, payload interface{}) {
	if err := conn.WriteJSON(payload); err != nil {
		logging.Sugar.Debugw("WebSocket write failed", "error", err)
	}
}

func wsError(conn *websocket.Conn, message string) {
	wsSend(conn, map[string]interface{}{"type": "error", "message": message})
}

// audioStatusFor maps audio manager errors to HTTP status codes.
func audioStatusFor(err error) int {
	switch {
	case errors.Is(err, audio.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, audio.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, audio.ErrNotRecording):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
