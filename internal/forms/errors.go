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

// DuplicateSchemaError is returned when registering a form type that is
// already present in the registry.
type DuplicateSchemaError struct {
	FormType string
}

func (e *DuplicateSchemaError) Error() string {
	return fmt.Sprintf("form schema already registered: %s", e.FormType)
}

// UnknownFormTypeError is returned when looking up a form type that was
// never registered.
type UnknownFormTypeError struct {
	FormType string
}

func (e *UnknownFormTypeError) Error() string {
	return fmt.Sprintf("unknown form type: %s", e.FormType)
}

// SchemaVersionMismatchError is returned when a form instance is built
// against a schema version that no longer matches the registered one.
type SchemaVersionMismatchError struct {
	FormType string
	Current  int
	Used     int
}

func (e *SchemaVersionMismatchError) Error() string {
	return fmt.Sprintf("schema version mismatch for %s: mapped against v%d, registry holds v%d",
		e.FormType, e.Used, e.Current)
}
