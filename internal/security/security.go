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

package security

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrInvalidFormType is returned when a form type format is invalid
	ErrInvalidFormType = errors.New("invalid form type")

	// ErrInvalidSessionID is returned when a session ID format is invalid
	ErrInvalidSessionID = errors.New("invalid session ID")

	// ErrInvalidAudioFilename is returned when an uploaded audio filename
	// is unsafe or has an unsupported extension
	ErrInvalidAudioFilename = errors.New("invalid audio filename")

	// formTypePattern validates form types to only allow safe characters
	formTypePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

	// sessionIDPattern matches the UUID layout session IDs are minted with
	sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	// allowedAudioExtensions lists the upload formats the transcription
	// API accepts
	allowedAudioExtensions = map[string]bool{
		".wav":  true,
		".mp3":  true,
		".m4a":  true,
		".mp4":  true,
		".ogg":  true,
		".webm": true,
		".flac": true,
	}
)

// SanitizeLogInput removes newline characters to prevent log injection attacks
// This function should be used for all user-controlled data before logging
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateFormType ensures that a form type contains only safe characters.
// Form types are lowercase snake_case identifiers at most 64 characters
// long; anything else is rejected before it reaches the registry or SQL.
func ValidateFormType(formType string) error {
	if formType == "" || len(formType) > 64 {
		return ErrInvalidFormType
	}

	if !formTypePattern.MatchString(formType) {
		return ErrInvalidFormType
	}

	return nil
}

// ValidateSessionID ensures that a session ID has the UUID shape the hub
// generates. Session IDs arrive in URL paths, so this also blocks path
// traversal.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	if !sessionIDPattern.MatchString(strings.ToLower(sessionID)) {
		return ErrInvalidSessionID
	}

	return nil
}

// ValidateAudioFilename checks an uploaded filename for path traversal and
// an allowed audio extension. The name is only used for content-type hints
// and logging, never as a filesystem path, but it still gets validated.
func ValidateAudioFilename(filename string) error {
	if filename == "" {
		return ErrInvalidAudioFilename
	}

	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") || strings.Contains(filename, "..") {
		return ErrInvalidAudioFilename
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAudioExtensions[ext] {
		return ErrInvalidAudioFilename
	}

	return nil
}
