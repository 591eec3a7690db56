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

// Package records defines the persistent entities the hub produces while
// processing clinical notes: the notes themselves, extraction results,
// filled form records, and the audit trail.
package records

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NoteSource identifies how a clinical note entered the system
type NoteSource string

const (
	// SourceTyped is a note submitted directly as text
	SourceTyped NoteSource = "typed"
	// SourceUploaded is a note transcribed from an uploaded audio file
	SourceUploaded NoteSource = "uploaded"
	// SourceRealtime is a note assembled from a live audio session
	SourceRealtime NoteSource = "realtime"
)

// knownSources lists the accepted note origins
var knownSources = map[NoteSource]bool{
	SourceTyped:    true,
	SourceUploaded: true,
	SourceRealtime: true,
}

// Note is a clinical note as received, before any extraction
type Note struct {
	ID        string     `json:"id" db:"id"`
	RawText   string     `json:"raw_text" db:"raw_text"`
	Source    NoteSource `json:"source" db:"source"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// NewNote creates a note with a generated ID and current timestamp
func NewNote(rawText string, source NoteSource) *Note {
	return &Note{
		ID:        NewID(),
		RawText:   rawText,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID generates a record identifier
func NewID() string {
	return uuid.NewString()
}

// IsValid performs basic validation on the note
func (n *Note) IsValid() error {
	if n.ID == "" {
		return fmt.Errorf("ID is required")
	}

	if n.RawText == "" {
		return fmt.Errorf("raw text is required")
	}

	if !knownSources[n.Source] {
		return fmt.Errorf("unknown note source: %q", n.Source)
	}

	if n.CreatedAt.IsZero() {
		return fmt.Errorf("created timestamp is required")
	}

	return nil
}

// Preview returns the first n characters of the note text for log lines
func (n *Note) Preview(max int) string {
	if max <= 0 || len(n.RawText) <= max {
		return n.RawText
	}
	return n.RawText[:max] + "..."
}

// String returns a human-readable representation of the note
func (n *Note) String() string {
	return fmt.Sprintf("Note{ID: %s, Source: %s, Chars: %d}", n.ID, n.Source, len(n.RawText))
}
