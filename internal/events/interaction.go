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

package events

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InteractionEvent records one pass through the audio pipeline
type InteractionEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	RequestID string    `json:"request_id" db:"request_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Audio metadata
	AudioHash  string `json:"audio_hash" db:"audio_hash"`
	AudioBytes int64  `json:"audio_bytes" db:"audio_bytes"`

	// Processing results
	Transcript string `json:"transcript" db:"transcript"`
	Language   string `json:"language" db:"language"`
	Intent     string `json:"intent" db:"intent"`

	// Response data
	ReplyText      string `json:"reply_text" db:"reply_text"`
	AudioFile      string `json:"audio_file,omitempty" db:"audio_file"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewInteractionEvent creates an event with a fresh UUID and the current timestamp
func NewInteractionEvent(requestID string) *InteractionEvent {
	return &InteractionEvent{
		UUID:      uuid.NewString(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
	}
}

// SetAudio records the size and SHA-256 of the uploaded clip for duplicate detection
func (ie *InteractionEvent) SetAudio(audio []byte) {
	sum := sha256.Sum256(audio)
	ie.AudioHash = hex.EncodeToString(sum[:])
	ie.AudioBytes = int64(len(audio))
}

// SetTranscript sets the recognized text and its language tag
func (ie *InteractionEvent) SetTranscript(text, language string) {
	ie.Transcript = text
	ie.Language = language
}

// SetReply sets the resolved intent and reply, and marks processing as complete
func (ie *InteractionEvent) SetReply(intent, replyText, audioFile string) {
	ie.Intent = intent
	ie.ReplyText = replyText
	ie.AudioFile = audioFile
	ie.ProcessingTime = time.Since(ie.Timestamp).Milliseconds()
}

// SetError marks the event as failed with an error message
func (ie *InteractionEvent) SetError(err error) {
	ie.Success = false
	ie.ErrorMessage = err.Error()
	ie.ProcessingTime = time.Since(ie.Timestamp).Milliseconds()
}

// IsValid performs basic validation on the event
func (ie *InteractionEvent) IsValid() error {
	if ie.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if ie.RequestID == "" {
		return fmt.Errorf("requestID is required")
	}

	if ie.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if ie.AudioBytes < 0 || ie.ProcessingTime < 0 {
		return fmt.Errorf("audio bytes and processing time must not be negative")
	}

	return nil
}

// String returns a human-readable representation of the event
func (ie *InteractionEvent) String() string {
	return fmt.Sprintf("InteractionEvent{UUID: %s, Intent: %s, Language: %s, Transcript: %q, Success: %t}",
		ie.UUID, ie.Intent, ie.Language, ie.Transcript, ie.Success)
}
