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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the accepted input formats for date fields, tried in
// order. Day-first layouts follow UK clinical convention.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
	time.RFC3339,
}

// coerceValue converts a raw candidate value to the field's declared type
// and runs the field validator. The returned error is recorded as the
// rejection reason on the mapped field; it never aborts mapping.
func coerceValue(value interface{}, def *FieldDefinition) (interface{}, error) {
	if value == nil {
		return nil, fmt.Errorf("no value supplied")
	}

	var (
		coerced interface{}
		err     error
	)

	switch def.Type {
	case FieldText:
		coerced, err = coerceText(value)
	case FieldDate:
		coerced, err = coerceDate(value)
	case FieldNumber:
		coerced, err = coerceNumber(value)
	case FieldEnum:
		coerced, err = coerceEnum(value, def.Options)
	case FieldList:
		coerced, err = coerceList(value)
	default:
		return nil, fmt.Errorf("unknown field type %q", def.Type)
	}

	if err != nil {
		return nil, err
	}

	if def.Validator != nil {
		if err := def.Validator(coerced); err != nil {
			return nil, err
		}
	}

	return coerced, nil
}

func coerceText(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", fmt.Errorf("empty text value")
		}
		return trimmed, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("cannot use %T as text", value)
	}
}

// coerceDate parses the accepted layouts and normalizes to YYYY-MM-DD
func coerceDate(value interface{}) (string, error) {
	if t, ok := value.(time.Time); ok {
		return t.Format("2006-01-02"), nil
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("cannot use %T as a date", value)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date value")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	return "", fmt.Errorf("cannot parse %q as a date", s)
}

func coerceNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a number", v.String())
		}
		return f, nil
	case string:
		trimmed := strings.TrimSpace(v)
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot use %T as a number", value)
	}
}

// coerceEnum matches the value against the permitted options after
// normalization and returns the canonical option spelling.
func coerceEnum(value interface{}, options []string) (string, error) {
	text, err := coerceText(value)
	if err != nil {
		return "", err
	}

	normalized := NormalizeLabel(text)
	for _, option := range options {
		if NormalizeLabel(option) == normalized {
			return option, nil
		}
	}

	return "", fmt.Errorf("value %q is not one of the permitted options", text)
}

// coerceList accepts string slices directly; a single string is split on
// semicolons and newlines. Items are trimmed and blanks dropped.
func coerceList(value interface{}) ([]string, error) {
	var items []string

	switch v := value.(type) {
	case []string:
		items = v
	case []interface{}:
		items = make([]string, 0, len(v))
		for _, item := range v {
			text, err := coerceText(item)
			if err != nil {
				return nil, fmt.Errorf("list item: %v", err)
			}
			items = append(items, text)
		}
	case string:
		items = strings.FieldsFunc(v, func(r rune) bool {
			return r == ';' || r == '\n' || r == '\r'
		})
	default:
		return nil, fmt.Errorf("cannot use %T as a list", value)
	}

	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if len(cleaned) == 0 {
		return nil, fmt.Errorf("empty list value")
	}
	return cleaned, nil
}
