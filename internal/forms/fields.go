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

// FieldType identifies the value type a form field accepts
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldDate   FieldType = "date"
	FieldNumber FieldType = "number"
	FieldEnum   FieldType = "enum"
	FieldList   FieldType = "list_of_text"
)

// knownFieldTypes lists every type the engine can coerce to
var knownFieldTypes = map[FieldType]bool{
	FieldText:   true,
	FieldDate:   true,
	FieldNumber: true,
	FieldEnum:   true,
	FieldList:   true,
}

// FieldDefinition describes a single field of a form schema. Definitions are
// immutable once their schema is registered.
type FieldDefinition struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`

	// Synonyms are alternate names the mapper accepts for this field,
	// compared after normalization
	Synonyms []string `json:"synonyms,omitempty"`

	// Options are the permitted values for enum fields
	Options []string `json:"options,omitempty"`

	// Validator runs against the coerced value; a non-nil error rejects it
	Validator func(value interface{}) error `json:"-"`
}

// Candidate is one proposed field value surfaced by the upstream extraction
// service. The mapper never mutates candidates; duplicate keys are allowed.
type Candidate struct {
	Key        string      `json:"key"`
	Value      interface{} `json:"value"`
	Confidence float64     `json:"confidence"`
}

// MappedField is the mapping outcome for one schema field. Value is nil when
// no candidate matched or the matched value failed coercion; Rejection then
// carries the reason so callers can surface it instead of silently dropping
// the field.
type MappedField struct {
	FieldID    string      `json:"field_id"`
	Value      interface{} `json:"value,omitempty"`
	Confidence float64     `json:"confidence"`
	SourceKey  string      `json:"source_key,omitempty"`
	Rejection  string      `json:"rejection,omitempty"`
}

// HasValue reports whether a value survived mapping and coercion
func (m MappedField) HasValue() bool {
	return m.Value != nil
}
