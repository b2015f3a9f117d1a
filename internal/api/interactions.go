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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/events"
	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/security"
	"github.com/loqalabs/loqa-support/internal/storage"
)

// InteractionsPath is the collection route; single events live under it
const InteractionsPath = "/api/interactions"

// InteractionReader is the read side of the interaction log
type InteractionReader interface {
	GetByUUID(ctx context.Context, uuid string) (*events.InteractionEvent, error)
	List(ctx context.Context, options storage.ListOptions) ([]*events.InteractionEvent, error)
	Count(ctx context.Context, options storage.ListOptions) (int64, error)
}

// InteractionsHandler handles HTTP requests for the interaction log
type InteractionsHandler struct {
	store InteractionReader
}

// NewInteractionsHandler creates a new interactions handler
func NewInteractionsHandler(store InteractionReader) *InteractionsHandler {
	return &InteractionsHandler{store: store}
}

// ListInteractionsResponse represents the response for listing interactions
type ListInteractionsResponse struct {
	Interactions []*events.InteractionEvent `json:"interactions"`
	Total        int64                      `json:"total"`
	Page         int                        `json:"page"`
	PageSize     int                        `json:"page_size"`
	TotalPages   int                        `json:"total_pages"`
}

// HandleInteractions handles GET /api/interactions
func (h *InteractionsHandler) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.listInteractions(w, r)
}

// HandleInteractionByID handles GET /api/interactions/{uuid}
func (h *InteractionsHandler) HandleInteractionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, InteractionsPath+"/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, "Interaction ID is required")
		return
	}

	h.getInteractionByID(w, r, pathParts[0])
}

// listInteractions handles GET /api/interactions
func (h *InteractionsHandler) listInteractions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Pagination
	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	options := storage.ListOptions{
		Intent:    query.Get("intent"),
		Language:  query.Get("language"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			options.Success = &success
		}
	}

	total, err := h.store.Count(r.Context(), options)
	if err != nil {
		logging.LogError(err, "Failed to count interactions")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	interactions, err := h.store.List(r.Context(), options)
	if err != nil {
		logging.LogError(err, "Failed to list interactions")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response := ListInteractionsResponse{
		Interactions: interactions,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}

	logging.LogInfo("Interactions API request",
		zap.String("endpoint", "list"),
		zap.Int("page", page),
		zap.Int("page_size", pageSize),
		zap.Int64("total_results", total),
		zap.String("intent", security.SanitizeLogInput(options.Intent)),
		zap.String("language", security.SanitizeLogInput(options.Language)),
	)

	writeJSON(w, http.StatusOK, response)
}

// getInteractionByID handles GET /api/interactions/{uuid}
func (h *InteractionsHandler) getInteractionByID(w http.ResponseWriter, r *http.Request, uuid string) {
	event, err := h.store.GetByUUID(r.Context(), uuid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Interaction not found")
			return
		}
		logging.LogError(err, "Failed to get interaction",
			zap.String("uuid", security.SanitizeLogInput(uuid)),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// parseIntParam parses integer parameter with default value
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}

	if value, err := strconv.Atoi(param); err == nil {
		return value
	}

	return defaultValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.LogError(err, "Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
