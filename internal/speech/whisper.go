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

//go:build whisper

package speech

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/logging"
)

// WhisperRecognizer implements Recognizer with a local whisper.cpp model
type WhisperRecognizer struct {
	model     whisper.Model
	modelPath string
}

// NewWhisperRecognizer loads the model at modelPath
func NewWhisperRecognizer(modelPath string) (*WhisperRecognizer, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found at %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	logging.LogInfo("✅ Whisper model loaded", zap.String("model_path", modelPath))
	return &WhisperRecognizer{
		model:     model,
		modelPath: modelPath,
	}, nil
}

// Recognize implements Recognizer. The hint's primary subtag selects the
// whisper language, so "hi-IN" decodes as Hindi.
func (wr *WhisperRecognizer) Recognize(ctx context.Context, audio []byte, languageCode string) (string, error) {
	if wr.model == nil {
		return "", fmt.Errorf("whisper model not initialized")
	}

	samples, err := DecodeWAV(audio)
	if err != nil {
		return "", fmt.Errorf("failed to decode audio: %w", err)
	}
	if len(samples) == 0 {
		return "", ErrNotUnderstood
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := wr.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	lang, _, _ := strings.Cut(languageCode, "-")
	if err := wctx.SetLanguage(strings.ToLower(lang)); err != nil {
		return "", fmt.Errorf("unsupported whisper language %q: %w", languageCode, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("failed to process audio: %w", err)
	}

	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	result := strings.TrimSpace(transcript.String())
	if result == "" {
		return "", ErrNotUnderstood
	}

	return result, nil
}

// Close releases the whisper model
func (wr *WhisperRecognizer) Close() error {
	if wr.model != nil {
		if err := wr.model.Close(); err != nil {
			return err
		}
		logging.LogInfo("🧠 Whisper model closed")
	}
	return nil
}
