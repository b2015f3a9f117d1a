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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the support service
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	STT       STTConfig
	Translate TranslateConfig
	TTS       TTSConfig
	Logging   LoggingConfig
	NATS      NATSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string
	Port           int
	GRPCPort       int // 0 disables the gRPC health server
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// StorageConfig holds audio file and interaction log configuration
type StorageConfig struct {
	StaticDir          string        // Directory for uploaded clips and synthesized replies
	AudioRetention     time.Duration // 0 keeps audio files forever
	DBPath             string
	RecordInteractions bool
}

// LanguageHint pairs a recognizer locale with the language tag reported for it
type LanguageHint struct {
	Code string // e.g. "en-IN"
	Tag  string // e.g. "en"
}

// STTConfig holds Speech-to-Text service configuration
type STTConfig struct {
	Backend          string // "google" or "whisper"
	URL              string
	APIKey           string
	Languages        []LanguageHint // Tried in order
	Timeout          time.Duration
	WhisperModelPath string
}

// TranslateConfig holds translation service configuration
type TranslateConfig struct {
	Enabled   bool
	URL       string
	APIKey    string
	Timeout   time.Duration
	CacheSize int
}

// TTSConfig holds Text-to-Speech service configuration
type TTSConfig struct {
	Backend        string // "google" or "openai"
	URL            string
	APIKey         string
	Voice          string  // Voice for the OpenAI-compatible backend (e.g., "af_bella")
	ResponseFormat string  // Audio format for the OpenAI-compatible backend
	Speed          float32 // Speech speed (1.0 = normal)
	MaxConcurrent  int
	Timeout        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	Enabled       bool
	URL           string
	Subject       string
	MaxReconnect  int
	ReconnectWait time.Duration
}

const (
	BackendGoogle  = "google"
	BackendWhisper = "whisper"
	BackendOpenAI  = "openai"
)

// DefaultLanguages is the recognizer hint order: Indian English first, then Hindi
const DefaultLanguages = "en-IN:en,hi-IN:hi"

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	hints, err := ParseLanguageHints(getEnvString("STT_LANGUAGES", DefaultLanguages))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Host:           getEnvString("LOQA_HOST", "0.0.0.0"),
			Port:           getEnvInt("LOQA_PORT", 5000),
			GRPCPort:       getEnvInt("LOQA_GRPC_PORT", 50051),
			ReadTimeout:    getEnvDuration("LOQA_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvDuration("LOQA_WRITE_TIMEOUT", 60*time.Second),
			MaxUploadBytes: int64(getEnvInt("LOQA_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Storage: StorageConfig{
			StaticDir:          getEnvString("LOQA_STATIC_DIR", "./static"),
			AudioRetention:     getEnvDuration("LOQA_AUDIO_RETENTION", 24*time.Hour),
			DBPath:             getEnvString("LOQA_DB_PATH", "./data/loqa-support.db"),
			RecordInteractions: getEnvBool("LOQA_RECORD_INTERACTIONS", true),
		},
		STT: STTConfig{
			Backend:          strings.ToLower(getEnvString("STT_BACKEND", BackendGoogle)),
			URL:              getEnvString("STT_URL", "https://speech.googleapis.com"),
			APIKey:           getEnvString("STT_API_KEY", ""),
			Languages:        hints,
			Timeout:          getEnvDuration("STT_TIMEOUT", 15*time.Second),
			WhisperModelPath: getEnvString("WHISPER_MODEL_PATH", "/models/ggml-small.bin"),
		},
		Translate: TranslateConfig{
			Enabled:   getEnvBool("TRANSLATE_ENABLED", true),
			URL:       getEnvString("TRANSLATE_URL", "https://translation.googleapis.com"),
			APIKey:    getEnvString("TRANSLATE_API_KEY", ""),
			Timeout:   getEnvDuration("TRANSLATE_TIMEOUT", 5*time.Second),
			CacheSize: getEnvInt("TRANSLATE_CACHE_SIZE", 256),
		},
		TTS: TTSConfig{
			Backend:        strings.ToLower(getEnvString("TTS_BACKEND", BackendGoogle)),
			URL:            getEnvString("TTS_URL", "https://texttospeech.googleapis.com"),
			APIKey:         getEnvString("TTS_API_KEY", ""),
			Voice:          getEnvString("TTS_VOICE", "af_bella"),
			ResponseFormat: getEnvString("TTS_FORMAT", "mp3"),
			Speed:          getEnvFloat32("TTS_SPEED", 1.0),
			MaxConcurrent:  getEnvInt("TTS_MAX_CONCURRENT", 10),
			Timeout:        getEnvDuration("TTS_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			Subject:       getEnvString("NATS_SUBJECT", "loqa.support.interactions"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ParseLanguageHints parses "code:tag,code:tag" into an ordered hint list.
// A bare code such as "hi-IN" reports its primary subtag ("hi").
func ParseLanguageHints(value string) ([]LanguageHint, error) {
	var hints []LanguageHint
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, tag, found := strings.Cut(part, ":")
		code = strings.TrimSpace(code)
		tag = strings.TrimSpace(tag)
		if !found || tag == "" {
			tag, _, _ = strings.Cut(code, "-")
		}
		if code == "" || tag == "" {
			return nil, fmt.Errorf("invalid language hint %q", part)
		}
		hints = append(hints, LanguageHint{Code: code, Tag: strings.ToLower(tag)})
	}
	if len(hints) == 0 {
		return nil, fmt.Errorf("at least one STT language must be provided")
	}
	return hints, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive: %d", c.Server.MaxUploadBytes)
	}

	if c.Storage.StaticDir == "" {
		return fmt.Errorf("static directory must be provided")
	}

	if c.Storage.AudioRetention < 0 {
		return fmt.Errorf("audio retention must not be negative: %s", c.Storage.AudioRetention)
	}

	switch c.STT.Backend {
	case BackendGoogle:
		if c.STT.URL == "" {
			return fmt.Errorf("STT URL must be provided")
		}
	case BackendWhisper:
		if c.STT.WhisperModelPath == "" {
			return fmt.Errorf("whisper model path must be provided")
		}
	default:
		return fmt.Errorf("unknown STT backend: %q", c.STT.Backend)
	}

	if c.Translate.Enabled && c.Translate.URL == "" {
		return fmt.Errorf("translate URL must be provided")
	}

	if c.Translate.CacheSize < 0 {
		return fmt.Errorf("translate cache size must not be negative: %d", c.Translate.CacheSize)
	}

	if c.TTS.Backend != BackendGoogle && c.TTS.Backend != BackendOpenAI {
		return fmt.Errorf("unknown TTS backend: %q", c.TTS.Backend)
	}

	if c.TTS.URL == "" {
		return fmt.Errorf("TTS URL must be provided")
	}

	if c.TTS.MaxConcurrent <= 0 {
		return fmt.Errorf("TTS max concurrent must be positive: %d", c.TTS.MaxConcurrent)
	}

	if c.TTS.Speed <= 0 {
		return fmt.Errorf("TTS speed must be positive: %f", c.TTS.Speed)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("NATS URL must be provided when NATS is enabled")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
