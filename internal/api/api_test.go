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
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/clerkwell/paperwork-hub/internal/extraction"
	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/messaging"
	"github.com/clerkwell/paperwork-hub/internal/pdf"
	"github.com/clerkwell/paperwork-hub/internal/storage"
	"github.com/clerkwell/paperwork-hub/internal/transcription"
)

func initLogging(t *testing.T) {
	t.Helper()
	if err := logging.Initialize(); err != nil {
		t.Fatalf("failed to initialize logging: %v", err)
	}
}

// stubExtractor records Extract calls and returns canned results
type stubExtractor struct {
	result     *extraction.Result
	err        error
	calls      int
	lastNote   string
	lastLabels []string
}

func (s *stubExtractor) Extract(_ context.Context, noteText string, fieldLabels []string) (*extraction.Result, error) {
	s.calls++
	s.lastNote = noteText
	s.lastLabels = fieldLabels
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubTranscriber returns a canned transcription result
type stubTranscriber struct {
	result *transcription.Result
	err    error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (*transcription.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// testEnv holds handler collaborators backed by a throwaway database
type testEnv struct {
	registry  *forms.Registry
	mapper    *forms.Mapper
	evaluator *forms.Evaluator
	builder   *forms.Builder
	renderer  *pdf.Renderer
	notes     *storage.NotesStore
	forms     *storage.FormsStore
	audit     *storage.AuditStore
	events    *messaging.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	initLogging(t)

	db, err := storage.NewDatabase(storage.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "api_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	registry := forms.NewRegistry()
	if err := forms.RegisterBuiltins(registry); err != nil {
		t.Fatalf("failed to register templates: %v", err)
	}

	events, err := messaging.NewService(messaging.Config{})
	if err != nil {
		t.Fatalf("failed to create messaging service: %v", err)
	}

	return &testEnv{
		registry:  registry,
		mapper:    forms.NewMapper(forms.DefaultFuzzyMatchThreshold),
		evaluator: forms.NewEvaluator(forms.DefaultAcceptanceConfidence),
		builder:   forms.NewBuilder(registry),
		renderer:  pdf.NewRenderer(),
		notes:     storage.NewNotesStore(db),
		forms:     storage.NewFormsStore(db),
		audit:     storage.NewAuditStore(db),
		events:    events,
	}
}

func (env *testEnv) formsHandler(extractor Extractor) *FormsHandler {
	return NewFormsHandler(FormsConfig{
		Registry:     env.registry,
		Mapper:       env.mapper,
		Evaluator:    env.evaluator,
		Builder:      env.builder,
		Extractor:    extractor,
		Renderer:     env.renderer,
		Notes:        env.notes,
		Forms:        env.forms,
		Audit:        env.audit,
		Events:       env.events,
		MaxFollowUps: forms.DefaultMaxFollowUps,
	})
}

// goodCandidates cover the shared demographic fields of every builtin
// template, leaving the clinical fields missing.
func goodCandidates() []forms.Candidate {
	return []forms.Candidate{
		{Key: "patient name", Value: "Amira Hassan", Confidence: 0.95},
		{Key: "nhs number", Value: "4857773456", Confidence: 0.9},
		{Key: "date of birth", Value: "1958-04-02", Confidence: 0.9},
	}
}

func extractionResult() *extraction.Result {
	return &extraction.Result{
		Candidates: goodCandidates(),
		Model:      "gpt-test",
		NoteChars:  120,
	}
}

func postJSON(t *testing.T, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// multipartAudio builds an upload body with a single audio file part
func multipartAudio(t *testing.T, field, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}
