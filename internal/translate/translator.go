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

// Package translate converts text between languages through a remote service.
package translate

import (
	"context"
	"errors"
)

// ErrTranslation is returned for any failed translation: transport errors,
// timeouts, non-200 responses and empty results all wrap it.
var ErrTranslation = errors.New("translation failed")

// Auto lets the service detect the source language
const Auto = "auto"

// Translator converts text from one language to another. Implementations
// never fall back to the input text themselves.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}
