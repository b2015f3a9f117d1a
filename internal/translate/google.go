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

package translate

import (
	"bytes"
	"context"
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

// GoogleClient implements Translator against the Cloud Translation v2 REST API
type GoogleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// NewGoogleClient creates a translation client. An empty baseURL points at
// the public Google endpoint.
func NewGoogleClient(baseURL, apiKey string, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = "https://translation.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Translate implements Translator
func (c *GoogleClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", ErrTranslation)
	}

	reqBody := translateRequest{
		Q:      []string{text},
		Target: target,
		Format: "text",
	}
	if source != Auto {
		reqBody.Source = source
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrTranslation, err)
	}

	endpoint := c.baseURL + "/language/translate/v2"
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrTranslation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrTranslation, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close translation response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrTranslation, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var translateResp translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrTranslation, err)
	}

	if len(translateResp.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations returned", ErrTranslation)
	}
	translated := strings.TrimSpace(translateResp.Data.Translations[0].TranslatedText)
	if translated == "" {
		return "", fmt.Errorf("%w: empty translation", ErrTranslation)
	}

	logging.LogTranslation("translate",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()),
	)

	return translated, nil
}
