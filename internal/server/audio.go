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
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/events"
	"github.com/loqalabs/loqa-support/internal/language"
	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/metrics"
	"github.com/loqalabs/loqa-support/internal/security"
	"github.com/loqalabs/loqa-support/internal/speech"
)

// Client-facing messages for /process_audio
const (
	AudioFieldName        = "audio_data"
	msgNoAudio            = "No audio file provided"
	msgAudioTooLarge      = "Audio file too large"
	msgNotUnderstood      = "Could not understand audio. Please try again."
	msgInternalAudioError = "Internal server error processing audio"
)

type processAudioResponse struct {
	UserText     string  `json:"user_text"`
	BotReply     string  `json:"bot_reply"`
	AudioURL     *string `json:"audio_url"`
	DetectedLang *string `json:"detected_lang"`
}

// handleProcessAudio runs one uploaded clip through transcription, reply
// resolution and synthesis
func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)
	event := events.NewInteractionEvent(requestID)

	if s.cfg.Server.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	}

	file, _, err := r.FormFile(AudioFieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
			writeError(w, http.StatusRequestEntityTooLarge, msgAudioTooLarge)
			return
		}
		logging.LogPipelineStage(requestID, "missing_upload", zap.Error(err))
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, msgNoAudio)
		return
	}

	audio, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		s.failAudio(w, event, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	event.SetAudio(audio)

	filename, err := s.deps.Files.SaveUpload(audio)
	if err != nil {
		s.failAudio(w, event, fmt.Errorf("failed to persist upload: %w", err))
		return
	}
	logging.LogPipelineStage(requestID, "upload_saved",
		zap.String("file", filename),
		zap.Int("bytes", len(audio)),
	)

	stageStart := time.Now()
	utterance := s.deps.Transcriber.Transcribe(ctx, audio)
	metrics.StageLatency.WithLabelValues(metrics.StageTranscribe).Observe(time.Since(stageStart).Seconds())

	if !utterance.Recognized() {
		logging.LogPipelineStage(requestID, "not_understood")
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeNotUnderstood).Inc()
		event.SetError(speech.ErrNotUnderstood)
		s.recordInteraction(ctx, event)
		writeError(w, http.StatusOK, msgNotUnderstood)
		return
	}
	event.SetTranscript(utterance.Text, utterance.Language)
	logging.LogPipelineStage(requestID, "transcribed",
		zap.String("text", security.SanitizeLogInput(utterance.Text)),
		zap.String("language", utterance.Language),
	)

	reply := s.deps.Responder.Respond(ctx, utterance.Text)

	audioFile := ""
	if s.deps.Speaker != nil {
		audioFile = s.deps.Speaker.Speak(ctx, reply.Text, voiceLanguage(reply.Language, reply.Translated))
	}

	response := processAudioResponse{
		UserText: utterance.Text,
		BotReply: reply.Text,
	}
	if audioFile != "" {
		url := staticPrefix + audioFile
		response.AudioURL = &url
	}
	if utterance.Language != "" {
		lang := utterance.Language
		response.DetectedLang = &lang
	}

	event.SetReply(string(reply.Intent), reply.Text, audioFile)
	s.recordInteraction(ctx, event)

	metrics.RequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logging.LogPipelineStage(requestID, "completed",
		zap.String("intent", string(reply.Intent)),
		zap.Bool("audio", audioFile != ""),
		zap.Int64("processing_time_ms", event.ProcessingTime),
	)

	writeJSON(w, http.StatusOK, response)
}

// voiceLanguage picks the synthesis language for the text actually being
// spoken: an untranslated reply is still English.
func voiceLanguage(detected string, translated bool) string {
	if translated && detected != "" {
		return detected
	}
	return language.English
}

func (s *Server) failAudio(w http.ResponseWriter, event *events.InteractionEvent, err error) {
	logging.LogError(err, "Audio request failed", zap.String("request_id", event.RequestID))
	metrics.RequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	event.SetError(err)
	s.recordInteraction(context.Background(), event)
	writeError(w, http.StatusInternalServerError, msgInternalAudioError)
}

// recordInteraction stores and publishes the event. Failures are logged only.
func (s *Server) recordInteraction(ctx context.Context, event *events.InteractionEvent) {
	if s.deps.Recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
		if err := s.deps.Recorder.Insert(recordCtx, event); err != nil {
			logging.LogError(err, "Failed to record interaction", zap.String("uuid", event.UUID))
		}
		cancel()
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishInteraction(event); err != nil {
			logging.LogWarn("Failed to publish interaction",
				zap.String("uuid", event.UUID),
				zap.Error(err))
		}
	}
}

// handleStatic serves stored audio files. Directory listings are never served.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, staticPrefix)
	path, err := s.deps.Files.Path(name)
	if err != nil {
		logging.LogWarn("Rejected static file request",
			zap.String("name", security.SanitizeLogInput(name)),
			zap.Error(err))
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	http.ServeFile(w, r, path)
}
