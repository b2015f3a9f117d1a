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
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/config"
	"github.com/loqalabs/loqa-support/internal/conversation"
	grpcserver "github.com/loqalabs/loqa-support/internal/grpc"
	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/messaging"
	"github.com/loqalabs/loqa-support/internal/metrics"
	"github.com/loqalabs/loqa-support/internal/server"
	"github.com/loqalabs/loqa-support/internal/speech"
	"github.com/loqalabs/loqa-support/internal/storage"
	"github.com/loqalabs/loqa-support/internal/translate"
	"github.com/loqalabs/loqa-support/internal/tts"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.LogError(err, "Loqa Support exited with error")
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logging.LogWarn("Failed to release resource", zap.Error(err))
			}
		}
	}()

	audioStore, err := storage.NewAudioStore(cfg.Storage.StaticDir)
	if err != nil {
		return err
	}

	recognizer, err := newRecognizer(cfg.STT)
	if err != nil {
		return err
	}
	if c, ok := recognizer.(io.Closer); ok {
		closers = append(closers, c)
	}

	translator, err := newTranslator(cfg.Translate)
	if err != nil {
		return err
	}

	synthesizer := newSynthesizer(cfg.TTS)
	var voice *tts.Voice
	if synthesizer != nil {
		voice = tts.NewVoice(synthesizer, audioStore)
		closers = append(closers, voice)
	}

	deps := server.Dependencies{
		Transcriber:        speech.NewAdapter(recognizer, hintsFrom(cfg.STT.Languages)),
		Responder:          conversation.NewOrchestrator(nil, translator, nil),
		Files:              audioStore,
		TranslationEnabled: translator != nil,
	}
	if voice != nil {
		deps.Speaker = voice
	}

	if cfg.Storage.RecordInteractions {
		db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
		if err != nil {
			return err
		}
		closers = append(closers, db)

		interactions := storage.NewInteractionsStore(db)
		deps.Recorder = interactions
		deps.Interactions = interactions
	}

	if cfg.NATS.Enabled {
		natsService := messaging.NewNATSService(cfg.NATS)
		if err := natsService.Connect(); err != nil {
			logging.LogWarn("NATS unavailable, interaction events will not be published", zap.Error(err))
		} else {
			closers = append(closers, closerFunc(func() error {
				natsService.Close()
				return nil
			}))
			deps.Publisher = natsService
		}
	}

	if cfg.Storage.AudioRetention > 0 {
		go runJanitor(ctx, audioStore, cfg.Storage.AudioRetention)
	}

	var health *grpcserver.HealthServer
	if cfg.Server.GRPCPort > 0 {
		health = grpcserver.NewHealthServer()
		go func() {
			if err := health.ListenAndServe(cfg.Server.Host, cfg.Server.GRPCPort); err != nil {
				logging.LogError(err, "gRPC health server stopped")
			}
		}()
		health.SetServing(true)
	}

	srv := server.New(cfg, deps)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if health != nil {
			health.Stop()
		}
		return err
	case <-ctx.Done():
	}

	if health != nil {
		health.SetServing(false)
		health.Stop()
	}
	return srv.Stop()
}

func newRecognizer(cfg config.STTConfig) (speech.Recognizer, error) {
	switch cfg.Backend {
	case config.BackendWhisper:
		recognizer, err := speech.NewWhisperRecognizer(cfg.WhisperModelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize whisper recognizer: %w", err)
		}
		return recognizer, nil
	default:
		return speech.NewGoogleClient(cfg.URL, cfg.APIKey, cfg.Timeout), nil
	}
}

func newTranslator(cfg config.TranslateConfig) (translate.Translator, error) {
	if !cfg.Enabled {
		logging.LogInfo("Translation disabled, Hindi utterances are matched untranslated")
		return nil, nil
	}

	client := translate.NewGoogleClient(cfg.URL, cfg.APIKey, cfg.Timeout)
	if cfg.CacheSize <= 0 {
		return client, nil
	}

	cached, err := translate.NewCachingTranslator(client, cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation cache: %w", err)
	}
	return cached, nil
}

// newSynthesizer returns nil when the backend is unreachable; replies are then
// returned without audio.
func newSynthesizer(cfg config.TTSConfig) tts.Synthesizer {
	switch cfg.Backend {
	case config.BackendOpenAI:
		client, err := tts.NewOpenAIClient(cfg)
		if err != nil {
			logging.LogWarn("TTS backend unavailable, replies will have no audio",
				zap.String("url", cfg.URL),
				zap.Error(err))
			return nil
		}
		return client
	default:
		return tts.NewGoogleClient(cfg.URL, cfg.APIKey, cfg.Speed, cfg.Timeout)
	}
}

func hintsFrom(languages []config.LanguageHint) []speech.Hint {
	hints := make([]speech.Hint, 0, len(languages))
	for _, l := range languages {
		hints = append(hints, speech.Hint{Code: l.Code, Tag: l.Tag})
	}
	return hints
}

// runJanitor sweeps expired audio files every quarter of the retention window
func runJanitor(ctx context.Context, store *storage.AudioStore, retention time.Duration) {
	ticker := time.NewTicker(retention / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(retention)
			if err != nil {
				logging.LogWarn("Audio sweep failed", zap.Error(err))
			}
			if removed > 0 {
				metrics.AudioFilesSwept.Add(float64(removed))
				logging.LogInfo("🧹 Swept expired audio files", zap.Int("removed", removed))
			}
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
