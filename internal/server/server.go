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
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/api"
	"github.com/loqalabs/loqa-support/internal/config"
	"github.com/loqalabs/loqa-support/internal/conversation"
	"github.com/loqalabs/loqa-support/internal/events"
	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/speech"
)

//go:embed web/index.html
var webFS embed.FS

// Transcriber turns an uploaded clip into an utterance
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) speech.Utterance
}

// Responder produces the canned reply for an utterance
type Responder interface {
	Respond(ctx context.Context, text string) conversation.Reply
}

// Speaker synthesizes a reply and returns the stored file name, or "" when
// no audio could be produced
type Speaker interface {
	Speak(ctx context.Context, text, language string) string
}

// AudioFiles is the upload and static side of the audio directory
type AudioFiles interface {
	SaveUpload(audio []byte) (string, error)
	Path(name string) (string, error)
}

// InteractionRecorder persists interaction events
type InteractionRecorder interface {
	Insert(ctx context.Context, event *events.InteractionEvent) error
}

// InteractionPublisher fans interaction events out to subscribers
type InteractionPublisher interface {
	PublishInteraction(event *events.InteractionEvent) error
}

// Dependencies are the pipeline components the server routes requests to.
// Speaker, Recorder, Publisher and Interactions are optional.
type Dependencies struct {
	Transcriber  Transcriber
	Responder    Responder
	Speaker      Speaker
	Files        AudioFiles
	Recorder     InteractionRecorder
	Publisher    InteractionPublisher
	Interactions api.InteractionReader

	TranslationEnabled bool
}

// Server is the HTTP front of the support bot
type Server struct {
	cfg    *config.Config
	deps   Dependencies
	mux    *http.ServeMux
	server *http.Server

	recordTimeout time.Duration
}

// New creates a server with its routes configured
func New(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		cfg:           cfg,
		deps:          deps,
		mux:           http.NewServeMux(),
		recordTimeout: 5 * time.Second,
	}

	s.routes()

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return withRequestID(withRecover(s.mux))
}

// Start serves HTTP until Stop is called
func (s *Server) Start() error {
	logging.LogInfo("🚀 Loqa Support starting",
		zap.String("addr", s.server.Addr),
		zap.Bool("translation", s.deps.TranslationEnabled),
		zap.Bool("synthesis", s.deps.Speaker != nil))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	logging.LogInfo("🛑 Shutting down Loqa Support")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logging.LogInfo("✅ Loqa Support shut down successfully")
	return nil
}

const staticPrefix = "/static/"

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/process_audio", s.handleProcessAudio)
	s.mux.HandleFunc(staticPrefix, s.handleStatic)
	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.Handle("/metrics", promhttp.Handler())

	if s.deps.Interactions != nil {
		interactions := api.NewInteractionsHandler(s.deps.Interactions)
		s.mux.HandleFunc(api.InteractionsPath, interactions.HandleInteractions)
		s.mux.HandleFunc(api.InteractionsPath+"/", interactions.HandleInteractionByID)
	}

	logging.LogInfo("🌐 HTTP routes configured",
		zap.String("audio_endpoint", "/process_audio"),
		zap.String("chat_endpoint", "/api/chat"),
		zap.String("static_endpoint", staticPrefix),
		zap.Bool("interactions_endpoint", s.deps.Interactions != nil))
}

// handleIndex serves the recorder page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		logging.LogError(err, "Failed to read client page")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		logging.LogWarn("Failed to write client page", zap.Error(err))
	}
}

// handleHealth reports liveness and which optional stages are wired
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"services": map[string]bool{
			"speech":       s.deps.Transcriber != nil,
			"translation":  s.deps.TranslationEnabled,
			"synthesis":    s.deps.Speaker != nil,
			"interactions": s.deps.Recorder != nil,
			"events":       s.deps.Publisher != nil,
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleChat runs a text utterance through the conversation pipeline
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var request struct {
		Text string `json:"text"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := readJSON(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if request.Text == "" {
		writeError(w, http.StatusBadRequest, "Text required")
		return
	}

	reply := s.deps.Responder.Respond(r.Context(), request.Text)

	writeJSON(w, http.StatusOK, map[string]string{
		"reply":    reply.Text,
		"language": reply.Language,
		"intent":   string(reply.Intent),
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.LogWarn("Failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, data interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()

	return json.Unmarshal(body, data)
}
