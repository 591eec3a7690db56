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

// Package api holds the HTTP handlers for the paperwork hub.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
)

// maxJSONBody caps JSON request bodies at 1 MiB.
const maxJSONBody = 1 << 20

// writeJSON writes payload as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Sugar.Errorw("Failed to write JSON response", "error", err)
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readJSON decodes the request body into dst, bounded by maxJSONBody.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(param); err == nil {
		return value
	}
	return defaultValue
}

// pathSegment returns the path segment at index after trimming prefix, or ""
// when the path is too short. pathSegment("/api/forms/abc", "/api/forms/", 0)
// yields "abc".
func pathSegment(path, prefix string, index int) string {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	if index >= len(parts) {
		return ""
	}
	return parts[index]
}

// registryLabels collects the field labels of the given form types in schema
// order, deduplicated. With no types it covers every registered schema.
func registryLabels(registry *forms.Registry, formTypes ...string) []string {
	if len(formTypes) == 0 {
		formTypes = registry.Types()
	}

	seen := make(map[string]bool)
	labels := make([]string, 0, 32)
	for _, formType := range formTypes {
		schema, err := registry.Get(formType)
		if err != nil {
			continue
		}
		for _, field := range schema.Fields {
			if !seen[field.Label] {
				seen[field.Label] = true
				labels = append(labels, field.Label)
			}
		}
	}
	return labels
}
