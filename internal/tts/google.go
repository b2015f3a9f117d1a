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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/logging"
)

// GoogleClient implements Synthesizer against the Cloud Text-to-Speech v1 REST API
type GoogleClient struct {
	baseURL    string
	apiKey     string
	speed      float32
	httpClient *http.Client
}

type synthesizeRequest struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
}

type audioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float32 `json:"speakingRate,omitempty"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// NewGoogleClient creates a synthesis client producing MP3. An empty baseURL
// points at the public Google endpoint.
func NewGoogleClient(baseURL, apiKey string, speed float32, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = "https://texttospeech.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		speed:      speed,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Synthesize implements Synthesizer
func (c *GoogleClient) Synthesize(ctx context.Context, text, language string) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	request := synthesizeRequest{
		Input:       synthesisInput{Text: text},
		Voice:       voiceSelection{LanguageCode: localeFor(language)},
		AudioConfig: audioConfig{AudioEncoding: "MP3"},
	}
	if c.speed > 0 && c.speed != 1.0 {
		request.AudioConfig.SpeakingRate = c.speed
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesize request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text:synthesize"
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	logging.LogTTSOperation("synthesis_start",
		zap.String("backend", "google"),
		zap.String("voice_locale", request.Voice.LanguageCode),
		zap.Int("text_length", len(text)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS HTTP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close TTS response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var synthesizeResp synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&synthesizeResp); err != nil {
		return nil, fmt.Errorf("failed to parse TTS response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(synthesizeResp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS service returned no audio")
	}

	logging.LogTTSOperation("synthesis_complete",
		zap.String("backend", "google"),
		zap.Int("audio_bytes", len(audio)),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	return &Result{
		Audio:       audio,
		ContentType: "audio/mpeg",
		Extension:   "mp3",
	}, nil
}

// Close cleans up resources
func (c *GoogleClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
