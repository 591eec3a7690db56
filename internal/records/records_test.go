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

package records

import (
	"regexp"
	"testing"
	"time"

	"github.com/clerkwell/paperwork-hub/internal/forms"
)

func TestNewID(t *testing.T) {
	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if !uuidPattern.MatchString(id) {
			t.Fatalf("NewID() = %q, not a v4 UUID", id)
		}
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestNewNote(t *testing.T) {
	note := NewNote("Patient seen in clinic today.", SourceTyped)

	if note.ID == "" {
		t.Error("expected generated ID")
	}
	if note.Source != SourceTyped {
		t.Errorf("Source = %q, want %q", note.Source, SourceTyped)
	}
	if note.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if err := note.IsValid(); err != nil {
		t.Errorf("new note should be valid, got: %v", err)
	}
}

func TestNoteIsValid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Note)
		wantErr bool
	}{
		{
			name:    "valid note",
			mutate:  func(n *Note) {},
			wantErr: false,
		},
		{
			name:    "missing ID",
			mutate:  func(n *Note) { n.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing text",
			mutate:  func(n *Note) { n.RawText = "" },
			wantErr: true,
		},
		{
			name:    "unknown source",
			mutate:  func(n *Note) { n.Source = "carrier_pigeon" },
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			mutate:  func(n *Note) { n.CreatedAt = time.Time{} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := NewNote("some text", SourceUploaded)
			tt.mutate(note)

			err := note.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("IsValid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNotePreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{
			name: "short text unchanged",
			text: "brief",
			max:  10,
			want: "brief",
		},
		{
			name: "long text truncated",
			text: "a very long clinical note body",
			max:  6,
			want: "a very...",
		},
		{
			name: "zero max returns all",
			text: "anything",
			max:  0,
			want: "anything",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := NewNote(tt.text, SourceTyped)
			if got := note.Preview(tt.max); got != tt.want {
				t.Errorf("Preview(%d) = %q, want %q", tt.max, got, tt.want)
			}
		})
	}
}

func TestExtractionCandidatesJSON(t *testing.T) {
	candidates := []forms.Candidate{
		{Key: "patient_name", Value: "John Smith", Confidence: 0.95},
		{Key: "nhs_number", Value: "9434765919", Confidence: 0.9},
	}

	extraction := NewExtraction("note-1", "gpt-4-1106-preview", candidates)

	jsonStr, err := extraction.CandidatesJSON()
	if err != nil {
		t.Fatalf("CandidatesJSON() error: %v", err)
	}

	restored := NewExtraction("note-1", "gpt-4-1106-preview", nil)
	if err := restored.SetCandidatesFromJSON(jsonStr); err != nil {
		t.Fatalf("SetCandidatesFromJSON() error: %v", err)
	}

	if len(restored.Candidates) != len(candidates) {
		t.Fatalf("restored %d candidates, want %d", len(restored.Candidates), len(candidates))
	}
	for i, c := range restored.Candidates {
		if c.Key != candidates[i].Key {
			t.Errorf("candidate %d key = %q, want %q", i, c.Key, candidates[i].Key)
		}
		if c.Confidence != candidates[i].Confidence {
			t.Errorf("candidate %d confidence = %v, want %v", i, c.Confidence, candidates[i].Confidence)
		}
	}
}

func TestExtractionCandidatesJSONEmpty(t *testing.T) {
	extraction := NewExtraction("note-1", "gpt-4-1106-preview", nil)

	jsonStr, err := extraction.CandidatesJSON()
	if err != nil {
		t.Fatalf("CandidatesJSON() error: %v", err)
	}
	if jsonStr != "[]" {
		t.Errorf("nil candidates JSON = %q, want %q", jsonStr, "[]")
	}

	if err := extraction.SetCandidatesFromJSON(""); err != nil {
		t.Errorf("SetCandidatesFromJSON(\"\") error: %v", err)
	}
	if extraction.Candidates == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestExtractionIsValid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Extraction)
		wantErr bool
	}{
		{
			name:    "valid extraction",
			mutate:  func(e *Extraction) {},
			wantErr: false,
		},
		{
			name:    "missing note ID",
			mutate:  func(e *Extraction) { e.NoteID = "" },
			wantErr: true,
		},
		{
			name:    "missing model",
			mutate:  func(e *Extraction) { e.Model = "" },
			wantErr: true,
		},
		{
			name: "confidence out of range",
			mutate: func(e *Extraction) {
				e.Candidates = []forms.Candidate{{Key: "x", Value: "y", Confidence: 1.5}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extraction := NewExtraction("note-1", "whisper-1", nil)
			tt.mutate(extraction)

			err := extraction.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("IsValid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func testInstance() *forms.FormInstance {
	return &forms.FormInstance{
		ID:            "inst-1",
		FormType:      "referral",
		SchemaVersion: 1,
		Fields: []forms.MappedField{
			{FieldID: "patient_name", Value: "Jane Doe", Confidence: 0.9},
		},
		CompletenessScore: 0.5,
		MissingRequired:   []string{"nhs_number"},
		CreatedAt:         time.Now().UTC(),
	}
}

func TestNewFormRecord(t *testing.T) {
	instance := testInstance()
	record := NewFormRecord(instance, "note-7")

	if record.ID != instance.ID {
		t.Errorf("ID = %q, want the instance id %q", record.ID, instance.ID)
	}
	if record.FormType != "referral" {
		t.Errorf("FormType = %q, want %q", record.FormType, "referral")
	}
	if record.SchemaVersion != 1 {
		t.Errorf("SchemaVersion = %d, want 1", record.SchemaVersion)
	}
	if record.CompletenessScore != 0.5 {
		t.Errorf("CompletenessScore = %v, want 0.5", record.CompletenessScore)
	}
	if record.NoteID != "note-7" {
		t.Errorf("NoteID = %q, want %q", record.NoteID, "note-7")
	}
	if err := record.IsValid(); err != nil {
		t.Errorf("new record should be valid, got: %v", err)
	}

	// The record's missing list must not alias the instance's
	record.MissingRequired[0] = "changed"
	if instance.MissingRequired[0] != "nhs_number" {
		t.Error("mutating record missing list leaked into the instance")
	}
}

func TestFormRecordInstanceJSON(t *testing.T) {
	record := NewFormRecord(testInstance(), "")

	jsonStr, err := record.InstanceJSON()
	if err != nil {
		t.Fatalf("InstanceJSON() error: %v", err)
	}

	restored := &FormRecord{}
	if err := restored.SetInstanceFromJSON(jsonStr); err != nil {
		t.Fatalf("SetInstanceFromJSON() error: %v", err)
	}

	if restored.Instance.FormType != "referral" {
		t.Errorf("restored form type = %q, want %q", restored.Instance.FormType, "referral")
	}
	if len(restored.Instance.Fields) != 1 {
		t.Errorf("restored %d fields, want 1", len(restored.Instance.Fields))
	}
}

func TestFormRecordIsValid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FormRecord)
		wantErr bool
	}{
		{
			name:    "valid record",
			mutate:  func(f *FormRecord) {},
			wantErr: false,
		},
		{
			name:    "empty note ID allowed",
			mutate:  func(f *FormRecord) { f.NoteID = "" },
			wantErr: false,
		},
		{
			name:    "missing form type",
			mutate:  func(f *FormRecord) { f.FormType = "" },
			wantErr: true,
		},
		{
			name:    "zero schema version",
			mutate:  func(f *FormRecord) { f.SchemaVersion = 0 },
			wantErr: true,
		},
		{
			name:    "nil instance",
			mutate:  func(f *FormRecord) { f.Instance = nil },
			wantErr: true,
		},
		{
			name:    "score out of range",
			mutate:  func(f *FormRecord) { f.CompletenessScore = 1.2 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := NewFormRecord(testInstance(), "note-1")
			tt.mutate(record)

			err := record.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("IsValid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuditEventIsValid(t *testing.T) {
	event := NewAuditEvent(ActionFormFilled, "form", "form-1", "score=0.85")
	if err := event.IsValid(); err != nil {
		t.Errorf("new audit event should be valid, got: %v", err)
	}

	event.Action = ""
	if err := event.IsValid(); err == nil {
		t.Error("expected error for missing action")
	}
}
