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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/security"
)

// Audio file name prefixes
const (
	UploadPrefix   = "temp_"
	ResponsePrefix = "response_"
)

// AudioStore keeps uploaded clips and synthesized replies in one flat directory
// that is served under /static.
type AudioStore struct {
	dir string
	now func() time.Time
}

// NewAudioStore creates the store, creating dir if needed
func NewAudioStore(dir string) (*AudioStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("audio directory must be provided")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &AudioStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory holding the audio files
func (s *AudioStore) Dir() string {
	return s.dir
}

// SaveUpload persists an uploaded clip as temp_<unix>_<uuid>.wav
func (s *AudioStore) SaveUpload(audio []byte) (string, error) {
	return s.save(UploadPrefix, "wav", audio)
}

// SaveResponse persists synthesized audio as response_<unix>_<uuid>.<extension>
func (s *AudioStore) SaveResponse(audio []byte, extension string) (string, error) {
	if extension == "" {
		extension = "mp3"
	}
	return s.save(ResponsePrefix, extension, audio)
}

func (s *AudioStore) save(prefix, extension string, audio []byte) (string, error) {
	name := fmt.Sprintf("%s%d_%s.%s", prefix, s.now().Unix(), uuid.NewString(), strings.ToLower(extension))
	if err := security.ValidateFilename(name); err != nil {
		return "", fmt.Errorf("refusing to write %q: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	// O_EXCL: a name is never reused, even if two writers raced.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := f.Write(audio); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close audio file: %w", err)
	}

	return name, nil
}

// Path resolves a stored filename to its location on disk
func (s *AudioStore) Path(name string) (string, error) {
	if err := security.ValidateFilename(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Sweep removes upload and response files last modified before now-olderThan
// and returns how many were deleted. A non-positive olderThan keeps everything.
func (s *AudioStore) Sweep(olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio directory: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasPrefix(name, UploadPrefix) || strings.HasPrefix(name, ResponsePrefix)) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed concurrently
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			logging.LogWarn("Failed to remove expired audio file", zap.String("file", name), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.LogInfo("🧹 Removed expired audio files", zap.Int("count", removed))
	}
	return removed, nil
}
