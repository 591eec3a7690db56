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

// FormRecord is a persisted filled form. Instance carries the full engine
// output; the score and missing list are duplicated as columns so listings
// never have to unmarshal the blob.
type FormRecord struct {
	ID                string              `json:"id" db:"id"`
	NoteID            string              `json:"note_id,omitempty" db:"note_id"`
	FormType          string              `json:"form_type" db:"form_type"`
	SchemaVersion     int                 `json:"schema_version" db:"schema_version"`
	Instance          *forms.FormInstance `json:"instance" db:"instance"`
	CompletenessScore float64             `json:"completeness_score" db:"completeness_score"`
	MissingRequired   []string            `json:"missing_required" db:"missing_required"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
}

// NewFormRecord creates a record from a built form instance. The record
// shares the instance's id, so API clients look forms up by the id the fill
// response carries. noteID may be empty when the form was filled from
// caller-supplied candidates rather than a stored note.
func NewFormRecord(instance *forms.FormInstance, noteID string) *FormRecord {
	missing := make([]string, len(instance.MissingRequired))
	copy(missing, instance.MissingRequired)

	return &FormRecord{
		ID:                instance.ID,
		NoteID:            noteID,
		FormType:          instance.FormType,
		SchemaVersion:     instance.SchemaVersion,
		Instance:          instance,
		CompletenessScore: instance.CompletenessScore,
		MissingRequired:   missing,
		CreatedAt:         time.Now().UTC(),
	}
}

// InstanceJSON returns the form instance as a JSON string for database
// storage
func (f *FormRecord) InstanceJSON() (string, error) {
	if f.Instance == nil {
		return "", fmt.Errorf("form record %s has no instance", f.ID)
	}

	data, err := json.Marshal(f.Instance)
	if err != nil {
		return "", fmt.Errorf("failed to marshal form instance: %w", err)
	}

	return string(data), nil
}

// SetInstanceFromJSON parses a JSON string and sets the instance
func (f *FormRecord) SetInstanceFromJSON(jsonStr string) error {
	if jsonStr == "" {
		return fmt.Errorf("instance JSON is empty")
	}

	var instance forms.FormInstance
	if err := json.Unmarshal([]byte(jsonStr), &instance); err != nil {
		return fmt.Errorf("failed to unmarshal form instance JSON: %w", err)
	}

	f.Instance = &instance
	return nil
}

// MissingRequiredJSON returns the missing-required list as a JSON string
// for database storage
func (f *FormRecord) MissingRequiredJSON() (string, error) {
	if f.MissingRequired == nil {
		return "[]", nil
	}

	data, err := json.Marshal(f.MissingRequired)
	if err != nil {
		return "", fmt.Errorf("failed to marshal missing required list: %w", err)
	}

	return string(data), nil
}

// SetMissingRequiredFromJSON parses a JSON string and sets the
// missing-required list
func (f *FormRecord) SetMissingRequiredFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		f.MissingRequired = []string{}
		return nil
	}

	var missing []string
	if err := json.Unmarshal([]byte(jsonStr), &missing); err != nil {
		return fmt.Errorf("failed to unmarshal missing required JSON: %w", err)
	}

	f.MissingRequired = missing
	return nil
}

// IsValid performs basic validation on the form record
func (f *FormRecord) IsValid() error {
	if f.ID == "" {
		return fmt.Errorf("ID is required")
	}

	if f.FormType == "" {
		return fmt.Errorf("form type is required")
	}

	if f.SchemaVersion < 1 {
		return fmt.Errorf("schema version must be at least 1")
	}

	if f.Instance == nil {
		return fmt.Errorf("instance is required")
	}

	if f.CompletenessScore < 0 || f.CompletenessScore > 1 {
		return fmt.Errorf("completeness score must be between 0 and 1")
	}

	if f.CreatedAt.IsZero() {
		return fmt.Errorf("created timestamp is required")
	}

	return nil
}

// String returns a human-readable representation of the form record
func (f *FormRecord) String() string {
	return fmt.Sprintf("FormRecord{ID: %s, FormType: %s, Version: %d, Score: %.2f, Missing: %d}",
		f.ID, f.FormType, f.SchemaVersion, f.CompletenessScore, len(f.MissingRequired))
}
