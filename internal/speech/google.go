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

package speech

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

// GoogleClient implements Recognizer against the Cloud Speech-to-Text v1 REST API.
// WAV and FLAC uploads carry their own encoding and sample rate in the header.
type GoogleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognitionConfig struct {
	LanguageCode string `json:"languageCode"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// NewGoogleClient creates a speech client. An empty baseURL points at the
// public Google endpoint.
func NewGoogleClient(baseURL, apiKey string, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = "https://speech.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Recognize implements Recognizer
func (c *GoogleClient) Recognize(ctx context.Context, audio []byte, languageCode string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio data")
	}

	payload, err := json.Marshal(recognizeRequest{
		Config: recognitionConfig{LanguageCode: languageCode},
		Audio:  recognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal recognize request: %w", err)
	}

	endpoint := c.baseURL + "/v1/speech:recognize"
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognize HTTP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close speech response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("recognize failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var recognizeResp recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&recognizeResp); err != nil {
		return "", fmt.Errorf("failed to parse recognize response: %w", err)
	}

	var transcript []string
	for _, result := range recognizeResp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			transcript = append(transcript, text)
		}
	}

	if len(transcript) == 0 {
		return "", ErrNotUnderstood
	}

	return strings.Join(transcript, " "), nil
}
