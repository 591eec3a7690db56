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
	"fmt"
	"log"
	"time"

	"github.com/clerkwell/paperwork-hub/internal/records"
)

// FormsStore handles database operations for filled form records
type FormsStore struct {
	db *Database
}

// NewFormsStore creates a new forms store
func NewFormsStore(db *Database) *FormsStore {
	return &FormsStore{db: db}
}

// Insert stores a new form record in the database
func (s *FormsStore) Insert(record *records.FormRecord) error {
	if err := record.IsValid(); err != nil {
		return fmt.Errorf("invalid form record: %w", err)
	}

	instanceJSON, err := record.InstanceJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize instance: %w", err)
	}

	missingJSON, err := record.MissingRequiredJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize missing required list: %w", err)
	}

	// note_id column is nullable; empty means filled without a stored note
	var noteID interface{}
	if record.NoteID != "" {
		noteID = record.NoteID
	}

	query := `
		INSERT INTO forms (
			id, note_id, form_type, schema_version,
			instance, completeness_score, missing_required, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.DB().Exec(query,
		record.ID, noteID, record.FormType, record.SchemaVersion,
		instanceJSON, record.CompletenessScore, missingJSON, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert form record: %w", err)
	}

	log.Printf("📝 Stored form record: %s (type: %s, score: %.2f)",
		record.ID, record.FormType, record.CompletenessScore)
	return nil
}

// GetByID retrieves a form record by its ID
func (s *FormsStore) GetByID(id string) (*records.FormRecord, error) {
	query := `
		SELECT id, note_id, form_type, schema_version,
			   instance, completeness_score, missing_required, created_at
		FROM forms
		WHERE id = ?`

	row := s.db.DB().QueryRow(query, id)
	record, err := s.scanFormRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("form record %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

// List retrieves form records with pagination and filtering
func (s *FormsStore) List(options ListOptions) ([]*records.FormRecord, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query form records: %w", err)
	}
	defer rows.Close()

	var recordsList []*records.FormRecord
	for rows.Next() {
		record, err := s.scanFormRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form record: %w", err)
		}
		recordsList = append(recordsList, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating form records: %w", err)
	}

	return recordsList, nil
}

// Count returns the total number of form records matching the filter
func (s *FormsStore) Count(options ListOptions) (int64, error) {
	// Build count query using same filters
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	err := s.db.DB().QueryRow(countQuery, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count form records: %w", err)
	}

	return count, nil
}

// GetByNote retrieves all form records filled from a given note
func (s *FormsStore) GetByNote(noteID string) ([]*records.FormRecord, error) {
	options := ListOptions{
		NoteID: noteID,
	}
	return s.List(options)
}

// Delete removes a form record by ID
func (s *FormsStore) Delete(id string) error {
	result, err := s.db.DB().Exec("DELETE FROM forms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete form record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("form record %s: %w", id, ErrNotFound)
	}

	log.Printf("🗑️  Deleted form record: %s", id)
	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	FormType  string
	NoteID    string
	MinScore  *float64 // nil = all
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "created_at", "completeness_score", "form_type"
	SortOrder string // "ASC", "DESC"
}

// allowedSortFields guards ORDER BY against injection; anything else falls
// back to created_at
var allowedSortFields = map[string]bool{
	"created_at":         true,
	"completeness_score": true,
	"form_type":          true,
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *FormsStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := `
		SELECT id, note_id, form_type, schema_version,
			   instance, completeness_score, missing_required, created_at
		FROM forms WHERE 1=1`

	var args []interface{}

	// Apply filters
	if options.FormType != "" {
		query += " AND form_type = ?"
		args = append(args, options.FormType)
	}

	if options.NoteID != "" {
		query += " AND note_id = ?"
		args = append(args, options.NoteID)
	}

	if options.MinScore != nil {
		query += " AND completeness_score >= ?"
		args = append(args, *options.MinScore)
	}

	if options.StartTime != nil {
		query += " AND created_at >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND created_at <= ?"
		args = append(args, options.EndTime)
	}

	// Apply sorting
	sortBy := options.SortBy
	if !allowedSortFields[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := options.SortOrder
	if sortOrder != "ASC" {
		sortOrder = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	// Apply pagination
	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanFormRecord scans a database row into a FormRecord struct
func (s *FormsStore) scanFormRecord(scanner interface{}) (*records.FormRecord, error) {
	var record records.FormRecord
	var noteID sql.NullString
	var instanceJSON string
	var missingJSON string

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&record.ID, &noteID, &record.FormType, &record.SchemaVersion,
		&instanceJSON, &record.CompletenessScore, &missingJSON, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if noteID.Valid {
		record.NoteID = noteID.String
	}

	if err := record.SetInstanceFromJSON(instanceJSON); err != nil {
		return nil, fmt.Errorf("failed to parse instance JSON: %w", err)
	}

	if err := record.SetMissingRequiredFromJSON(missingJSON); err != nil {
		return nil, fmt.Errorf("failed to parse missing required JSON: %w", err)
	}

	return &record, nil
}
