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

package tts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/metrics"
)

// AudioSaver persists synthesized audio and returns the stored filename
type AudioSaver interface {
	SaveResponse(audio []byte, extension string) (string, error)
}

// Voice turns reply text into a stored audio file
type Voice struct {
	synthesizer Synthesizer
	store       AudioSaver
}

// NewVoice creates a voice over a synthesizer and an audio store. A nil
// synthesizer produces no audio.
func NewVoice(synthesizer Synthesizer, store AudioSaver) *Voice {
	return &Voice{synthesizer: synthesizer, store: store}
}

// Speak synthesizes text and returns the stored filename, or "" when there is
// no text or anything fails. Failures never reach the caller.
func (v *Voice) Speak(ctx context.Context, text, language string) string {
	if text == "" {
		return ""
	}
	if v.synthesizer == nil || v.store == nil {
		return ""
	}

	startTime := time.Now()
	defer func() {
		metrics.StageLatency.WithLabelValues(metrics.StageSynthesize).Observe(time.Since(startTime).Seconds())
	}()

	result, err := v.synthesizer.Synthesize(ctx, text, language)
	if err != nil {
		metrics.SynthesisFailures.Inc()
		logging.LogError(err, "Speech synthesis failed, replying without audio",
			zap.String("component", "tts"),
			zap.String("language", language),
		)
		return ""
	}
	if result == nil || len(result.Audio) == 0 {
		metrics.SynthesisFailures.Inc()
		logging.LogWarn("Speech synthesis returned no audio", zap.String("language", language))
		return ""
	}

	filename, err := v.store.SaveResponse(result.Audio, result.Extension)
	if err != nil {
		metrics.SynthesisFailures.Inc()
		logging.LogError(err, "Failed to store synthesized audio",
			zap.String("component", "tts"),
		)
		return ""
	}

	logging.LogTTSOperation("audio_stored",
		zap.String("file", filename),
		zap.Int("audio_bytes", len(result.Audio)),
	)
	return filename
}

// Close releases the underlying synthesizer
func (v *Voice) Close() error {
	if v.synthesizer == nil {
		return nil
	}
	return v.synthesizer.Close()
}
