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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/config"
	"github.com/loqalabs/loqa-support/internal/logging"
)

// openAISpeechRequest represents a request to an OpenAI-compatible TTS API
type openAISpeechRequest struct {
	Model    string  `json:"model"`
	Input    string  `json:"input"`
	Voice    string  `json:"voice"`
	Format   string  `json:"response_format"`
	Speed    float32 `json:"speed,omitempty"`
	LangCode string  `json:"lang_code,omitempty"`
}

// openAIVoicesResponse represents the response from the voices endpoint
type openAIVoicesResponse struct {
	Voices []string `json:"voices"`
}

// Kokoro voices and language codes used when the reply is not English
var (
	languageVoices = map[string]string{
		"hi": "hf_alpha",
	}
	languageCodes = map[string]string{
		"en": "a",
		"hi": "h",
	}
)

// OpenAIClient implements Synthesizer for OpenAI-compatible TTS services such as Kokoro
type OpenAIClient struct {
	baseURL         string
	client          *http.Client
	config          config.TTSConfig
	semaphore       chan struct{} // Limits concurrent requests
	queueTimeout    time.Duration
	mu              sync.RWMutex
	cachedVoices    []string
	voicesCacheTime time.Time
}

// NewOpenAIClient creates a new OpenAI-compatible TTS client and checks the
// service is reachable.
func NewOpenAIClient(cfg config.TTSConfig) (*OpenAIClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("TTS URL cannot be empty")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	c := &OpenAIClient{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		client:       &http.Client{Timeout: cfg.Timeout},
		config:       cfg,
		semaphore:    make(chan struct{}, cfg.MaxConcurrent),
		queueTimeout: 5 * time.Second,
	}

	if err := c.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	logging.LogInfo("🔊 TTS client initialized",
		zap.String("url", cfg.URL),
		zap.String("voice", cfg.Voice),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
	)

	return c, nil
}

// Synthesize implements Synthesizer
func (c *OpenAIClient) Synthesize(ctx context.Context, text, language string) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	// Acquire semaphore slot for concurrency control
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.queueTimeout):
		return nil, fmt.Errorf("TTS synthesis queue full, request timed out")
	}

	startTime := time.Now()
	voice := c.voiceFor(language)
	format := c.config.ResponseFormat
	if format == "" {
		format = "mp3"
	}

	requestBody, err := json.Marshal(openAISpeechRequest{
		Model:    "tts-1",
		Input:    text,
		Voice:    voice,
		Format:   format,
		Speed:    c.config.Speed,
		LangCode: languageCodes[language],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	logging.LogTTSOperation("synthesis_start",
		zap.String("backend", "openai"),
		zap.String("voice", voice),
		zap.Int("text_length", len(text)),
		zap.String("format", format),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
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
		logging.LogWarn("TTS request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(body)),
		)
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TTS audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS service returned no audio")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(format)
	}

	logging.LogTTSOperation("synthesis_complete",
		zap.String("backend", "openai"),
		zap.String("voice", voice),
		zap.Duration("processing_time", time.Since(startTime)),
		zap.String("content_type", contentType),
		zap.Int("audio_bytes", len(audio)),
	)

	return &Result{
		Audio:       audio,
		ContentType: contentType,
		Extension:   extensionFor(contentType, format),
	}, nil
}

// voiceFor picks a language-appropriate voice, preferring one the service lists
func (c *OpenAIClient) voiceFor(language string) string {
	voice, ok := languageVoices[language]
	if !ok {
		return c.config.Voice
	}

	voices, err := c.GetAvailableVoices()
	if err != nil || len(voices) == 0 {
		return voice
	}
	for _, available := range voices {
		if available == voice {
			return voice
		}
	}
	return c.config.Voice
}

// GetAvailableVoices returns the list of available voices
func (c *OpenAIClient) GetAvailableVoices() ([]string, error) {
	c.mu.RLock()
	// Return cached voices if they're fresh (cache for 1 hour)
	if len(c.cachedVoices) > 0 && time.Since(c.voicesCacheTime) < time.Hour {
		voices := make([]string, len(c.cachedVoices))
		copy(voices, c.cachedVoices)
		c.mu.RUnlock()
		return voices, nil
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voices: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close voices response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices request failed with status %d", resp.StatusCode)
	}

	var voicesResponse openAIVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	c.mu.Lock()
	c.cachedVoices = make([]string, len(voicesResponse.Voices))
	copy(c.cachedVoices, voicesResponse.Voices)
	c.voicesCacheTime = time.Now()
	c.mu.Unlock()

	if logging.Sugar != nil {
		logging.Sugar.Debugw("🔊 Retrieved available voices",
			"count", len(voicesResponse.Voices),
		)
	}

	return voicesResponse.Voices, nil
}

// Close cleans up resources
func (c *OpenAIClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// testConnection tests the connection to the TTS service
func (c *OpenAIClient) testConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/voices", nil)
	if err != nil {
		return fmt.Errorf("failed to create test request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close test response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status %d", resp.StatusCode)
	}

	return nil
}
