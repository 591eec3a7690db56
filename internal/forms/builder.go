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

package forms

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FormInstance is a finalized, schema-conformant form: one mapped field per
// schema field plus the completeness report. Instances are immutable after
// build; a correction produces a new instance so audit trails stay intact.
type FormInstance struct {
	ID                string        `json:"id"`
	FormType          string        `json:"form_type"`
	SchemaVersion     int           `json:"schema_version"`
	Fields            []MappedField `json:"fields"`
	CompletenessScore float64       `json:"completeness_score"`
	MissingRequired   []string      `json:"missing_required"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Builder assembles form instances against the registry's current schemas
type Builder struct {
	registry *Registry
}

// NewBuilder creates a builder backed by the given registry
func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry}
}

// Build assembles a FormInstance from mapped fields and their completeness
// report. It returns UnknownFormTypeError for unregistered types and
// SchemaVersionMismatchError when the version the fields were mapped
// against no longer matches the registry, which guards against a schema
// update landing mid-request. The mapped fields must cover the schema
// exactly, in schema order.
func (b *Builder) Build(formType string, schemaVersion int, mapped []MappedField, report Report) (*FormInstance, error) {
	schema, err := b.registry.Get(formType)
	if err != nil {
		return nil, err
	}

	if schema.Version != schemaVersion {
		return nil, &SchemaVersionMismatchError{
			FormType: formType,
			Current:  schema.Version,
			Used:     schemaVersion,
		}
	}

	if len(mapped) != len(schema.Fields) {
		return nil, fmt.Errorf("mapped fields do not cover schema %s: got %d, schema defines %d",
			formType, len(mapped), len(schema.Fields))
	}
	for i := range mapped {
		if mapped[i].FieldID != schema.Fields[i].ID {
			return nil, fmt.Errorf("mapped field %d is %q, schema %s expects %q",
				i, mapped[i].FieldID, formType, schema.Fields[i].ID)
		}
	}

	// Copy the slices so later caller mutations cannot reach the instance
	fields := make([]MappedField, len(mapped))
	copy(fields, mapped)
	missing := make([]string, len(report.MissingRequired))
	copy(missing, report.MissingRequired)

	return &FormInstance{
		ID:                newInstanceID(),
		FormType:          formType,
		SchemaVersion:     schemaVersion,
		Fields:            fields,
		CompletenessScore: report.Score,
		MissingRequired:   missing,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// newInstanceID generates a form instance identifier
func newInstanceID() string {
	return uuid.NewString()
}
