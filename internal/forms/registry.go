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

import "sync"

// Registry holds the registered form schemas. Schemas are loaded once at
// startup and read thereafter; the registry is an explicit object handed to
// every consumer rather than ambient global state.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*FormSchema
	order   []string
}

// NewRegistry creates an empty schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*FormSchema),
	}
}

// Register adds a schema. It validates the schema invariants and returns
// DuplicateSchemaError when the form type is already present.
func (r *Registry) Register(schema *FormSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.FormType]; exists {
		return &DuplicateSchemaError{FormType: schema.FormType}
	}

	r.schemas[schema.FormType] = schema
	r.order = append(r.order, schema.FormType)
	return nil
}

// Get returns the schema for a form type, or UnknownFormTypeError
func (r *Registry) Get(formType string) (*FormSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[formType]
	if !exists {
		return nil, &UnknownFormTypeError{FormType: formType}
	}
	return schema, nil
}

// Types returns the registered form types in registration order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}

// Len returns the number of registered schemas
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
