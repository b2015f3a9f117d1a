/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
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
	"regexp"
	"strings"
)

var (
	// ErrInvalidFilename is returned when an audio filename could escape the static directory
	ErrInvalidFilename = errors.New("invalid filename")

	filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

// maxLogInputLength caps user text echoed into log fields
const maxLogInputLength = 256

// SanitizeLogInput removes line breaks so user-controlled text cannot forge log
// entries, and truncates it to a bounded length.
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	if runes := []rune(sanitized); len(runes) > maxLogInputLength {
		sanitized = string(runes[:maxLogInputLength]) + "…"
	}
	return sanitized
}

// ValidateFilename ensures a name refers to a single file inside a flat
// directory. Only ASCII letters, digits, dots, dashes and underscores are
// allowed; separators and parent references are rejected.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrInvalidFilename
	}

	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return ErrInvalidFilename
	}

	if !filenamePattern.MatchString(name) {
		return ErrInvalidFilename
	}

	return nil
}
