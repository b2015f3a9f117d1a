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

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/events"
	"github.com/loqalabs/loqa-support/internal/logging"
)

const interactionColumns = `uuid, request_id, timestamp,
		audio_hash, audio_bytes,
		transcript, language, intent,
		reply_text, audio_file, processing_time_ms, success, error_message`

// InteractionsStore handles database operations for interaction events
type InteractionsStore struct {
	db *Database
}

// NewInteractionsStore creates a new interactions store
func NewInteractionsStore(db *Database) *InteractionsStore {
	return &InteractionsStore{db: db}
}

// Insert stores a new interaction event
func (s *InteractionsStore) Insert(ctx context.Context, event *events.InteractionEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid interaction event: %w", err)
	}

	query := `
		INSERT INTO interactions (` + interactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().ExecContext(ctx, query,
		event.UUID, event.RequestID, event.Timestamp.UTC(),
		event.AudioHash, event.AudioBytes,
		event.Transcript, event.Language, event.Intent,
		event.ReplyText, event.AudioFile, event.ProcessingTime, event.Success, event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	logging.LogDatabaseOperation("INSERT", "interactions",
		zap.String("uuid", event.UUID),
		zap.String("intent", event.Intent),
	)
	return nil
}

// GetByUUID retrieves an interaction by its UUID
func (s *InteractionsStore) GetByUUID(ctx context.Context, uuid string) (*events.InteractionEvent, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE uuid = ?`

	row := s.db.DB().QueryRowContext(ctx, query, uuid)
	event, err := scanInteraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interaction %s: %w", uuid, ErrNotFound)
	}
	return event, err
}

// List retrieves interactions with pagination and filtering
func (s *InteractionsStore) List(ctx context.Context, options ListOptions) ([]*events.InteractionEvent, error) {
	query, args := buildListQuery(options)

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	eventsList := []*events.InteractionEvent{}
	for rows.Next() {
		event, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		eventsList = append(eventsList, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}

	return eventsList, nil
}

// Count returns the number of interactions matching the filter
func (s *InteractionsStore) Count(ctx context.Context, options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args := buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS filtered"

	var count int64
	if err := s.db.DB().QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}

	return count, nil
}

// Delete removes an interaction by UUID
func (s *InteractionsStore) Delete(ctx context.Context, uuid string) error {
	result, err := s.db.DB().ExecContext(ctx, "DELETE FROM interactions WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("interaction %s: %w", uuid, ErrNotFound)
	}

	logging.LogDatabaseOperation("DELETE", "interactions", zap.String("uuid", uuid))
	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	Intent   string
	Language string
	Success  *bool // nil = all, true = success only, false = errors only

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp" or "processing_time"
	SortOrder string // "ASC" or "DESC"
}

var sortColumns = map[string]string{
	"timestamp":       "timestamp",
	"processing_time": "processing_time_ms",
}

// buildListQuery constructs the SQL query based on ListOptions
func buildListQuery(options ListOptions) (string, []interface{}) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE 1=1`

	var args []interface{}

	if options.Intent != "" {
		query += " AND intent = ?"
		args = append(args, options.Intent)
	}

	if options.Language != "" {
		query += " AND language = ?"
		args = append(args, options.Language)
	}

	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}

	// Sort columns come from a fixed set; never interpolate caller input.
	sortBy, ok := sortColumns[options.SortBy]
	if !ok {
		sortBy = "timestamp"
	}
	sortOrder := "DESC"
	if strings.EqualFold(options.SortOrder, "ASC") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, rowid %s", sortBy, sortOrder, sortOrder)

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanInteraction scans a database row into an InteractionEvent
func scanInteraction(row rowScanner) (*events.InteractionEvent, error) {
	var event events.InteractionEvent

	err := row.Scan(
		&event.UUID, &event.RequestID, &event.Timestamp,
		&event.AudioHash, &event.AudioBytes,
		&event.Transcript, &event.Language, &event.Intent,
		&event.ReplyText, &event.AudioFile, &event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	return &event, nil
}
