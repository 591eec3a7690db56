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
	"encoding/json"
	"fmt"
	"time"

	"github.com/clerkwell/paperwork-hub/internal/forms"
)

// Extraction captures one model pass over a note: the candidates it
// surfaced and which model produced them
type Extraction struct {
	ID         string            `json:"id" db:"id"`
	NoteID     string            `json:"note_id" db:"note_id"`
	Model      string            `json:"model" db:"model"`
	Candidates []forms.Candidate `json:"candidates" db:"candidates"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// NewExtraction creates an extraction record with a generated ID and
// current timestamp
func NewExtraction(noteID, model string, candidates []forms.Candidate) *Extraction {
	return &Extraction{
		ID:         NewID(),
		NoteID:     noteID,
		Model:      model,
		Candidates: candidates,
		CreatedAt:  time.Now().UTC(),
	}
}

// CandidatesJSON returns candidates as a JSON string for database storage
func (e *Extraction) CandidatesJSON() (string, error) {
	if e.Candidates == nil {
		return "[]", nil
	}

	data, err := json.Marshal(e.Candidates)
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidates: %w", err)
	}

	return string(data), nil
}

// SetCandidatesFromJSON parses a JSON string and sets candidates
func (e *Extraction) SetCandidatesFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		e.Candidates = []forms.Candidate{}
		return nil
	}

	var candidates []forms.Candidate
	if err := json.Unmarshal([]byte(jsonStr), &candidates); err != nil {
		return fmt.Errorf("failed to unmarshal candidates JSON: %w", err)
	}

	e.Candidates = candidates
	return nil
}

// IsValid performs basic validation on the extraction
func (e *Extraction) IsValid() error {
	if e.ID == "" {
		return fmt.Errorf("ID is required")
	}

	if e.NoteID == "" {
		return fmt.Errorf("note ID is required")
	}

	if e.Model == "" {
		return fmt.Errorf("model is required")
	}

	if e.CreatedAt.IsZero() {
		return fmt.Errorf("created timestamp is required")
	}

	for i, c := range e.Candidates {
		if c.Confidence < 0 || c.Confidence > 1 {
			return fmt.Errorf("candidate %d confidence must be between 0 and 1", i)
		}
	}

	return nil
}

// String returns a human-readable representation of the extraction
func (e *Extraction) String() string {
	return fmt.Sprintf("Extraction{ID: %s, NoteID: %s, Model: %s, Candidates: %d}",
		e.ID, e.NoteID, e.Model, len(e.Candidates))
}
