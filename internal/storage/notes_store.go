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

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/clerkwell/paperwork-hub/internal/records"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// NotesStore handles database operations for clinical notes and their
// extractions
type NotesStore struct {
	db *Database
}

// NewNotesStore creates a new notes store
func NewNotesStore(db *Database) *NotesStore {
	return &NotesStore{db: db}
}

// Insert stores a new note in the database
func (s *NotesStore) Insert(note *records.Note) error {
	if err := note.IsValid(); err != nil {
		return fmt.Errorf("invalid note: %w", err)
	}

	query := `
		INSERT INTO notes (id, raw_text, source, created_at)
		VALUES (?, ?, ?, ?)`

	_, err := s.db.DB().Exec(query, note.ID, note.RawText, string(note.Source), note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	log.Printf("📝 Stored note: %s (source: %s, chars: %d)", note.ID, note.Source, len(note.RawText))
	return nil
}

// GetByID retrieves a note by its ID
func (s *NotesStore) GetByID(id string) (*records.Note, error) {
	query := `
		SELECT id, raw_text, source, created_at
		FROM notes
		WHERE id = ?`

	var note records.Note
	var source string
	err := s.db.DB().QueryRow(query, id).Scan(&note.ID, &note.RawText, &source, &note.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	note.Source = records.NoteSource(source)
	return &note, nil
}

// ListRecent retrieves the most recent notes, newest first
func (s *NotesStore) ListRecent(limit int) ([]*records.Note, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, raw_text, source, created_at
		FROM notes
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*records.Note
	for rows.Next() {
		var note records.Note
		var source string
		if err := rows.Scan(&note.ID, &note.RawText, &source, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		note.Source = records.NoteSource(source)
		notes = append(notes, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// SaveExtraction stores an extraction result for a note
func (s *NotesStore) SaveExtraction(extraction *records.Extraction) error {
	if err := extraction.IsValid(); err != nil {
		return fmt.Errorf("invalid extraction: %w", err)
	}

	candidatesJSON, err := extraction.CandidatesJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize candidates: %w", err)
	}

	query := `
		INSERT INTO extractions (id, note_id, model, candidates, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.DB().Exec(query,
		extraction.ID, extraction.NoteID, extraction.Model, candidatesJSON, extraction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert extraction: %w", err)
	}

	log.Printf("📝 Stored extraction: %s (note: %s, candidates: %d)",
		extraction.ID, extraction.NoteID, len(extraction.Candidates))
	return nil
}

// GetExtractionByNote retrieves the most recent extraction for a note
func (s *NotesStore) GetExtractionByNote(noteID string) (*records.Extraction, error) {
	query := `
		SELECT id, note_id, model, candidates, created_at
		FROM extractions
		WHERE note_id = ?
		ORDER BY created_at DESC
		LIMIT 1`

	var extraction records.Extraction
	var candidatesJSON string
	err := s.db.DB().QueryRow(query, noteID).Scan(
		&extraction.ID, &extraction.NoteID, &extraction.Model, &candidatesJSON, &extraction.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("extraction for note %s: %w", noteID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}

	if err := extraction.SetCandidatesFromJSON(candidatesJSON); err != nil {
		return nil, fmt.Errorf("failed to parse candidates JSON: %w", err)
	}

	return &extraction, nil
}

// Delete removes a note by ID. Extractions cascade via the schema.
func (s *NotesStore) Delete(id string) error {
	result, err := s.db.DB().Exec("DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}

	log.Printf("🗑️  Deleted note: %s", id)
	return nil
}
