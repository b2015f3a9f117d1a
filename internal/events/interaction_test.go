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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInteractionEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewInteractionEvent("req-1")

	_, err := uuid.Parse(event.UUID)
	require.NoError(t, err)
	assert.Equal(t, "req-1", event.RequestID)
	assert.True(t, event.Success)
	assert.False(t, event.Timestamp.Before(before))
	assert.NoError(t, event.IsValid())

	other := NewInteractionEvent("req-1")
	assert.NotEqual(t, event.UUID, other.UUID)
}

func TestInteractionEvent_SetAudio(t *testing.T) {
	event := NewInteractionEvent("req-1")
	event.SetAudio([]byte("abc"))

	assert.Equal(t, int64(3), event.AudioBytes)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", event.AudioHash)
}

func TestInteractionEvent_Lifecycle(t *testing.T) {
	event := NewInteractionEvent("req-2")
	event.SetTranscript("मेरा बैलेंस", "hi")
	event.SetReply("balance", "आपका बैलेंस", "response_1_x.mp3")

	assert.Equal(t, "hi", event.Language)
	assert.Equal(t, "balance", event.Intent)
	assert.Equal(t, "response_1_x.mp3", event.AudioFile)
	assert.GreaterOrEqual(t, event.ProcessingTime, int64(0))
	assert.True(t, event.Success)

	event.SetError(errors.New("boom"))
	assert.False(t, event.Success)
	assert.Equal(t, "boom", event.ErrorMessage)
	assert.True(t, strings.Contains(event.String(), "Success: false"))
}

func TestInteractionEvent_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *InteractionEvent)
	}{
		{"Missing UUID", func(e *InteractionEvent) { e.UUID = "" }},
		{"Missing request ID", func(e *InteractionEvent) { e.RequestID = "" }},
		{"Zero timestamp", func(e *InteractionEvent) { e.Timestamp = time.Time{} }},
		{"Negative processing time", func(e *InteractionEvent) { e.ProcessingTime = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewInteractionEvent("req")
			tt.mutate(event)
			assert.Error(t, event.IsValid())
		})
	}
}
