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
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-support/internal/events"
	"github.com/loqalabs/loqa-support/internal/security"
)

func newTestStore(t *testing.T) *InteractionsStore {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewInteractionsStore(db)
}

func newEvent(intent, language string, success bool, offset time.Duration) *events.InteractionEvent {
	event := events.NewInteractionEvent("req-" + intent)
	event.Timestamp = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	event.SetAudio([]byte(intent))
	event.SetTranscript("text for "+intent, language)
	event.Intent = intent
	event.ReplyText = "reply for " + intent
	event.Success = success
	event.ProcessingTime = int64(offset / time.Second)
	return event
}

func TestNewDatabase_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "loqa.db")
	db, err := NewDatabase(DatabaseConfig{Path: path})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, path, db.GetPath())
	assert.NoError(t, db.Ping())

	var name string
	err = db.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='interactions'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "interactions", name)

	// Migrating twice is harmless
	require.NoError(t, db.migrate())
}

func TestInteractionsStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := newEvent("balance", "hi", true, 0)
	event.AudioFile = "response_1_x.mp3"
	require.NoError(t, store.Insert(ctx, event))

	got, err := store.GetByUUID(ctx, event.UUID)
	require.NoError(t, err)
	assert.Equal(t, event.UUID, got.UUID)
	assert.Equal(t, event.RequestID, got.RequestID)
	assert.True(t, event.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", event.Timestamp, got.Timestamp)
	assert.Equal(t, event.AudioHash, got.AudioHash)
	assert.Equal(t, event.AudioBytes, got.AudioBytes)
	assert.Equal(t, "text for balance", got.Transcript)
	assert.Equal(t, "hi", got.Language)
	assert.Equal(t, "balance", got.Intent)
	assert.Equal(t, "response_1_x.mp3", got.AudioFile)
	assert.True(t, got.Success)
}

func TestInteractionsStore_InsertInvalid(t *testing.T) {
	store := newTestStore(t)
	event := newEvent("balance", "en", true, 0)
	event.UUID = ""

	assert.Error(t, store.Insert(context.Background(), event))
}

func TestInteractionsStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByUUID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInteractionsStore_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fixtures := []*events.InteractionEvent{
		newEvent("balance", "en", true, 1*time.Minute),
		newEvent("recharge", "hi", true, 2*time.Minute),
		newEvent("balance", "hi", true, 3*time.Minute),
		newEvent("unknown", "en", false, 4*time.Minute),
	}
	for _, event := range fixtures {
		require.NoError(t, store.Insert(ctx, event))
	}

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, fixtures[3].UUID, all[0].UUID, "newest first by default")

	asc, err := store.List(ctx, ListOptions{SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, fixtures[0].UUID, asc[0].UUID)

	balance, err := store.List(ctx, ListOptions{Intent: "balance"})
	require.NoError(t, err)
	assert.Len(t, balance, 2)

	hindi, err := store.List(ctx, ListOptions{Language: "hi"})
	require.NoError(t, err)
	assert.Len(t, hindi, 2)

	failed := false
	failures, err := store.List(ctx, ListOptions{Success: &failed})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "unknown", failures[0].Intent)

	page, err := store.List(ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, fixtures[2].UUID, page[0].UUID)

	count, err := store.Count(ctx, ListOptions{Language: "hi", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	empty, err := store.List(ctx, ListOptions{Intent: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestInteractionsStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	event := newEvent("plan", "en", true, 0)
	require.NoError(t, store.Insert(ctx, event))

	require.NoError(t, store.Delete(ctx, event.UUID))

	_, err := store.GetByUUID(ctx, event.UUID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildListQuery_IgnoresUnknownSort(t *testing.T) {
	query, _ := buildListQuery(ListOptions{SortBy: "uuid; DROP TABLE interactions", SortOrder: "sideways"})

	assert.Contains(t, query, "ORDER BY timestamp DESC")
	assert.NotContains(t, query, "DROP")
}

var (
	uploadName   = regexp.MustCompile(`^temp_\d+_[0-9a-f-]{36}\.wav$`)
	responseName = regexp.MustCompile(`^response_\d+_[0-9a-f-]{36}\.mp3$`)
)

func TestAudioStore_Save(t *testing.T) {
	store, err := NewAudioStore(filepath.Join(t.TempDir(), "static"))
	require.NoError(t, err)

	upload, err := store.SaveUpload([]byte("RIFF"))
	require.NoError(t, err)
	assert.Regexp(t, uploadName, upload)

	response, err := store.SaveResponse([]byte("ID3"), "MP3")
	require.NoError(t, err)
	assert.Regexp(t, responseName, response)

	data, err := os.ReadFile(filepath.Join(store.Dir(), response))
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), data)

	defaulted, err := store.SaveResponse([]byte("x"), "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(defaulted, ".mp3"))
}

func TestAudioStore_UniqueNamesWithinSameSecond(t *testing.T) {
	store, err := NewAudioStore(t.TempDir())
	require.NoError(t, err)
	fixed := time.Unix(1700000000, 0)
	store.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name, err := store.SaveResponse([]byte{byte(i)}, "mp3")
		require.NoError(t, err)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestAudioStore_Path(t *testing.T) {
	store, err := NewAudioStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Path("response_1_a.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "response_1_a.mp3"), path)

	_, err = store.Path("../secret")
	assert.ErrorIs(t, err, security.ErrInvalidFilename)
}

func TestAudioStore_Sweep(t *testing.T) {
	dir := t.TempDir()
	store, err := NewAudioStore(dir)
	require.NoError(t, err)

	oldUpload, err := store.SaveUpload([]byte("old"))
	require.NoError(t, err)
	oldResponse, err := store.SaveResponse([]byte("old"), "mp3")
	require.NoError(t, err)
	fresh, err := store.SaveResponse([]byte("new"), "mp3")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("keep"), 0640))

	past := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{oldUpload, oldResponse, "index.html"} {
		require.NoError(t, os.Chtimes(filepath.Join(dir, name), past, past))
	}

	removed, err := store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.NoFileExists(t, filepath.Join(dir, oldUpload))
	assert.NoFileExists(t, filepath.Join(dir, oldResponse))
	assert.FileExists(t, filepath.Join(dir, fresh))
	assert.FileExists(t, filepath.Join(dir, "index.html"))
}

func TestAudioStore_SweepDisabled(t *testing.T) {
	dir := t.TempDir()
	store, err := NewAudioStore(dir)
	require.NoError(t, err)
	name, err := store.SaveUpload([]byte("clip"))
	require.NoError(t, err)
	past := time.Now().Add(-365 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, name), past, past))

	removed, err := store.Sweep(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, filepath.Join(dir, name))
}

func TestNewAudioStore_EmptyDir(t *testing.T) {
	_, err := NewAudioStore("")
	assert.Error(t, err)
}
