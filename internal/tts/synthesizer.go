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

// Package tts renders reply text into playable audio.
package tts

import (
	"context"
	"mime"
	"strings"
)

// Result holds synthesized audio
type Result struct {
	Audio       []byte
	ContentType string // MIME type of the audio
	Extension   string // File extension without the dot, e.g. "mp3"
}

// Synthesizer defines the interface for text-to-speech services
type Synthesizer interface {
	// Synthesize renders text spoken in the given language ("en", "hi")
	Synthesize(ctx context.Context, text, language string) (*Result, error)

	// Close cleans up resources
	Close() error
}

var contentTypeExtensions = map[string]string{
	"audio/mpeg":   "mp3",
	"audio/mp3":    "mp3",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/wave":   "wav",
	"audio/ogg":    "ogg",
	"audio/opus":   "opus",
	"audio/flac":   "flac",
	"audio/aac":    "aac",
	"audio/x-flac": "flac",
}

var formatContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"opus": "audio/opus",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"pcm":  "audio/pcm",
}

// extensionFor picks a file extension from the response content type and
// falls back to the requested format.
func extensionFor(contentType, format string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExtensions[strings.ToLower(mediaType)]; ok {
			return ext
		}
	}
	if format != "" {
		return strings.ToLower(format)
	}
	return "mp3"
}

// contentTypeFor maps a requested audio format to its MIME type
func contentTypeFor(format string) string {
	if contentType, ok := formatContentTypes[strings.ToLower(format)]; ok {
		return contentType
	}
	return "application/octet-stream"
}

// localeFor maps a language tag to the Indian locale used for voices
func localeFor(language string) string {
	if language == "" {
		language = "en"
	}
	if strings.Contains(language, "-") {
		return language
	}
	return strings.ToLower(language) + "-IN"
}
