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
	"fmt"

	"github.com/clerkwell/paperwork-hub/internal/records"
)

// AuditStore handles database operations for the processing audit trail.
// The trail is append-only; entries are never updated or deleted.
type AuditStore struct {
	db *Database
}

// NewAuditStore creates a new audit store
func NewAuditStore(db *Database) *AuditStore {
	return &AuditStore{db: db}
}

// Append stores a new audit event
func (s *AuditStore) Append(event *records.AuditEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, action, entity_type, entity_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().Exec(query,
		event.ID, event.Action, event.EntityType, event.EntityID, event.Detail, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// Recent retrieves the most recent audit events, newest first
func (s *AuditStore) Recent(limit int) ([]*records.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, action, entity_type, entity_id, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var eventsList []*records.AuditEvent
	for rows.Next() {
		var event records.AuditEvent
		if err := rows.Scan(
			&event.ID, &event.Action, &event.EntityType,
			&event.EntityID, &event.Detail, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		eventsList = append(eventsList, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return eventsList, nil
}

// CountByAction returns how many audit events were recorded per action
func (s *AuditStore) CountByAction() (map[string]int64, error) {
	query := `
		SELECT action, COUNT(*)
		FROM audit_events
		GROUP BY action`

	rows, err := s.db.DB().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan audit count: %w", err)
		}
		counts[action] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit counts: %w", err)
	}

	return counts, nil
}
