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

// Package speech turns recorded audio into text with a language tag.
package speech

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/logging"
)

// ErrNotUnderstood is returned by a Recognizer when the audio held no
// recognizable speech for the requested language. Any other error is a
// transport or service failure.
var ErrNotUnderstood = errors.New("speech not understood")

// Recognizer transcribes audio under a single language hint such as "en-IN"
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// Hint is a recognizer locale together with the language tag reported for it
type Hint struct {
	Code string
	Tag  string
}

// DefaultHints tries Indian English first, then Hindi
var DefaultHints = []Hint{
	{Code: "en-IN", Tag: "en"},
	{Code: "hi-IN", Tag: "hi"},
}

// Utterance is the result of transcription. The zero value means nothing was
// recognized.
type Utterance struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Recognized reports whether any text was transcribed
func (u Utterance) Recognized() bool {
	return strings.TrimSpace(u.Text) != ""
}

// Adapter runs a Recognizer over an ordered list of language hints
type Adapter struct {
	recognizer Recognizer
	hints      []Hint
}

// NewAdapter creates a speech adapter. Empty hints fall back to DefaultHints.
func NewAdapter(recognizer Recognizer, hints []Hint) *Adapter {
	if len(hints) == 0 {
		hints = DefaultHints
	}
	return &Adapter{
		recognizer: recognizer,
		hints:      append([]Hint(nil), hints...),
	}
}

// Transcribe tries each hint in order and returns the first recognized text
// tagged with that hint's language. A not-understood result moves on to the
// next hint; any other failure stops immediately. Failures yield the empty
// Utterance.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) Utterance {
	if a.recognizer == nil || len(audio) == 0 {
		return Utterance{}
	}

	for _, hint := range a.hints {
		startTime := time.Now()
		text, err := a.recognizer.Recognize(ctx, audio, hint.Code)
		if err != nil {
			if errors.Is(err, ErrNotUnderstood) {
				logging.LogInfo("Speech not understood under hint",
					zap.String("component", "speech"),
					zap.String("language_code", hint.Code),
				)
				continue
			}
			logging.LogError(err, "Speech recognition failed",
				zap.String("component", "speech"),
				zap.String("language_code", hint.Code),
			)
			return Utterance{}
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		logging.LogInfo("Speech recognized",
			zap.String("component", "speech"),
			zap.String("language_code", hint.Code),
			zap.Int("text_length", len(text)),
			zap.Int64("duration_ms", time.Since(startTime).Milliseconds()),
		)
		return Utterance{Text: text, Language: hint.Tag}
	}

	return Utterance{}
}
