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

import "fmt"

// FormSchema is the versioned, ordered set of fields a form type requires
type FormSchema struct {
	FormType string            `json:"form_type"`
	Name     string            `json:"name"`
	Version  int               `json:"version"`
	Fields   []FieldDefinition `json:"fields"`
}

// Validate checks the schema invariants: a non-empty form type, a version of
// at least 1, unique field ids, at least one required field, and options on
// every enum field.
func (s *FormSchema) Validate() error {
	if s.FormType == "" {
		return fmt.Errorf("schema form type must not be empty")
	}
	if s.Version < 1 {
		return fmt.Errorf("schema %s: version must be at least 1, got %d", s.FormType, s.Version)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: must define at least one field", s.FormType)
	}

	seen := make(map[string]bool, len(s.Fields))
	hasRequired := false
	for i, field := range s.Fields {
		if field.ID == "" {
			return fmt.Errorf("schema %s: field %d has an empty id", s.FormType, i)
		}
		if seen[field.ID] {
			return fmt.Errorf("schema %s: duplicate field id %q", s.FormType, field.ID)
		}
		seen[field.ID] = true

		if field.Label == "" {
			return fmt.Errorf("schema %s: field %q has an empty label", s.FormType, field.ID)
		}
		if !knownFieldTypes[field.Type] {
			return fmt.Errorf("schema %s: field %q has unknown type %q", s.FormType, field.ID, field.Type)
		}
		if field.Type == FieldEnum && len(field.Options) == 0 {
			return fmt.Errorf("schema %s: enum field %q has no options", s.FormType, field.ID)
		}
		if field.Required {
			hasRequired = true
		}
	}

	if !hasRequired {
		return fmt.Errorf("schema %s: at least one field must be required", s.FormType)
	}
	return nil
}

// Field returns the definition with the given id, or false when absent
func (s *FormSchema) Field(id string) (*FieldDefinition, bool) {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// RequiredFieldIDs returns the ids of all required fields in schema order
func (s *FormSchema) RequiredFieldIDs() []string {
	ids := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Required {
			ids = append(ids, field.ID)
		}
	}
	return ids
}
