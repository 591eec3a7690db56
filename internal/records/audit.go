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
	"fmt"
	"time"
)

// Audit actions recorded by the hub
const (
	ActionNoteCreated         = "note.created"
	ActionExtractionCompleted = "extraction.completed"
	ActionFormFilled          = "form.filled"
	ActionFormDeleted         = "form.deleted"
	ActionPDFRendered         = "pdf.rendered"
	ActionAudioTranscribed    = "audio.transcribed"
)

// AuditEvent is one entry in the processing audit trail. Clinical data
// never goes in Detail; it holds counts, scores, and filenames only.
type AuditEvent struct {
	ID         string    `json:"id" db:"id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Detail     string    `json:"detail,omitempty" db:"detail"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// NewAuditEvent creates an audit event with a generated ID and current
// timestamp
func NewAuditEvent(action, entityType, entityID, detail string) *AuditEvent {
	return &AuditEvent{
		ID:         NewID(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsValid performs basic validation on the audit event
func (a *AuditEvent) IsValid() error {
	if a.ID == "" {
		return fmt.Errorf("ID is required")
	}

	if a.Action == "" {
		return fmt.Errorf("action is required")
	}

	if a.EntityType == "" {
		return fmt.Errorf("entity type is required")
	}

	if a.EntityID == "" {
		return fmt.Errorf("entity ID is required")
	}

	if a.CreatedAt.IsZero() {
		return fmt.Errorf("created timestamp is required")
	}

	return nil
}

// String returns a human-readable representation of the audit event
func (a *AuditEvent) String() string {
	return fmt.Sprintf("AuditEvent{ID: %s, Action: %s, Entity: %s/%s}",
		a.ID, a.Action, a.EntityType, a.EntityID)
}
