/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
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
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/clerkwell/paperwork-hub/internal/api"
	"github.com/clerkwell/paperwork-hub/internal/audio"
	"github.com/clerkwell/paperwork-hub/internal/config"
	"github.com/clerkwell/paperwork-hub/internal/extraction"
	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/messaging"
	"github.com/clerkwell/paperwork-hub/internal/pdf"
	"github.com/clerkwell/paperwork-hub/internal/storage"
	"github.com/clerkwell/paperwork-hub/internal/transcription"
)

// Server wires the form engine, stores, AI clients, and HTTP surface of the
// paperwork hub together.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	db       *storage.Database
	registry *forms.Registry
	events   *messaging.Service
	audioMgr *audio.Manager

	extractor   *extraction.Client
	transcriber transcription.Transcriber

	// Server context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	startedAt time.Time
}

// New creates a server with every component wired from the configuration.
// The OpenAI-backed components are only built when an API key is configured;
// without one the hub still serves templates, offline fills, and stored
// records, and the AI endpoints answer 503.
func New(cfg *config.Config) (*Server, error) {
	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Database.Path})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	registry := forms.NewRegistry()
	if err := forms.RegisterBuiltins(registry); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering form templates: %w", err)
	}

	events, err := messaging.NewService(messaging.Config{
		URL:           cfg.NATS.URL,
		MaxReconnects: cfg.NATS.MaxReconnect,
		ReconnectWait: cfg.NATS.ReconnectWait,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		db:       db,
		registry: registry,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := s.buildAIClients(); err != nil {
		s.closeComponents()
		cancel()
		return nil, err
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		// Request contexts descend from the server context so in-flight
		// AI calls are cancelled when the hub shuts down
		BaseContext: func(net.Listener) context.Context { return s.ctx },
	}

	s.routes()

	return s, nil
}

// buildAIClients creates the extraction and transcription clients plus the
// realtime audio manager, all of which need the hosted API credential.
func (s *Server) buildAIClients() error {
	if s.cfg.OpenAI.APIKey == "" {
		logging.Sugar.Warnw("⚠️ No OpenAI API key configured; extraction, transcription, and realtime audio endpoints are disabled")
		return nil
	}

	extractor, err := extraction.NewClient(extraction.Config{
		APIKey:          s.cfg.OpenAI.APIKey,
		BaseURL:         s.cfg.OpenAI.BaseURL,
		Model:           s.cfg.OpenAI.ExtractionModel,
		Temperature:     s.cfg.OpenAI.Temperature,
		MaxOutputTokens: int64(s.cfg.OpenAI.MaxOutputTokens),
		Timeout:         s.cfg.OpenAI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("building extraction client: %w", err)
	}

	transcriber, err := transcription.NewOpenAIClient(transcription.OpenAIConfig{
		APIKey:   s.cfg.OpenAI.APIKey,
		BaseURL:  s.cfg.OpenAI.BaseURL,
		Model:    s.cfg.OpenAI.TranscriptionModel,
		Language: s.cfg.Audio.Language,
		Timeout:  s.cfg.OpenAI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("building transcription client: %w", err)
	}

	s.extractor = extractor
	s.transcriber = transcriber
	s.audioMgr = audio.NewManager(transcriber, audio.Config{
		SampleRate:    s.cfg.Audio.SampleRate,
		BitsPerSample: s.cfg.Audio.BitsPerSample,
		ChunkSeconds:  s.cfg.Audio.ChunkSeconds,
		MaxSessions:   s.cfg.Audio.MaxSessions,
		IdleTimeout:   s.cfg.Audio.IdleTimeout,
	})

	return nil
}

// routes sets up HTTP routing for the hub
func (s *Server) routes() {
	notes := storage.NewNotesStore(s.db)
	formStore := storage.NewFormsStore(s.db)
	audit := storage.NewAuditStore(s.db)

	// The Extractor interface is satisfied by a non-nil client only; a typed
	// nil inside the interface would dodge the handlers' nil checks.
	var extractor api.Extractor
	if s.extractor != nil {
		extractor = s.extractor
	}

	extractHandler := api.NewExtractHandler(extractor, s.transcriber, s.registry, notes, audit, s.events)
	formsHandler := api.NewFormsHandler(api.FormsConfig{
		Registry:     s.registry,
		Mapper:       forms.NewMapper(s.cfg.Mapping.FuzzyMatchThreshold),
		Evaluator:    forms.NewEvaluator(s.cfg.Mapping.AcceptanceConfidence),
		Builder:      forms.NewBuilder(s.registry),
		Extractor:    extractor,
		Renderer:     pdf.NewRenderer(),
		Notes:        notes,
		Forms:        formStore,
		Audit:        audit,
		Events:       s.events,
		MaxFollowUps: s.cfg.Mapping.MaxFollowUps,
	})
	audioHandler := api.NewAudioHandler(s.audioMgr, notes, audit, s.events)

	// Health check
	s.mux.HandleFunc("/health", s.handleHealth)

	// Extraction and transcription
	s.mux.HandleFunc("/api/extract", extractHandler.HandleExtract)
	s.mux.HandleFunc("/api/transcribe", extractHandler.HandleTranscribe)

	// Templates and form filling
	s.mux.HandleFunc("/api/templates", formsHandler.HandleTemplates)
	s.mux.HandleFunc("/api/templates/", formsHandler.HandleTemplateByType)
	s.mux.HandleFunc("/api/forms", formsHandler.HandleForms)
	s.mux.HandleFunc("/api/forms/", formsHandler.HandleFormByID)
	s.mux.HandleFunc("/api/forms/fill", formsHandler.HandleFill)
	s.mux.HandleFunc("/api/process", formsHandler.HandleProcess)

	// PDF rendering
	s.mux.HandleFunc("/api/forms/pdf", formsHandler.HandlePDF)
	s.mux.HandleFunc("/api/forms/pdf/bundle", formsHandler.HandlePDFBundle)
	s.mux.HandleFunc("/api/forms/pdf/from-note", formsHandler.HandlePDFFromNote)

	// Realtime audio sessions
	s.mux.HandleFunc("/api/audio/sessions", audioHandler.HandleSessions)
	s.mux.HandleFunc("/api/audio/sessions/", audioHandler.HandleSessionByID)
	s.mux.HandleFunc("/ws/audio/", audioHandler.HandleWebSocket)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"extract_endpoint", "/api/extract",
		"fill_endpoint", "/api/forms/fill",
		"process_endpoint", "/api/process",
		"audio_ws_endpoint", "/ws/audio/{session_id}")
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.startedAt = time.Now().UTC()

	logging.Sugar.Infow("🚀 Paperwork hub starting",
		"http_port", s.cfg.Server.Port,
		"db_path", s.cfg.Database.Path,
		"templates", s.registry.Len(),
		"ai_configured", s.extractor != nil,
		"events_enabled", s.events.Enabled())

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server and its components
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down paperwork hub")

	// Cancel context to stop background services
	s.cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.closeComponents()

	logging.Sugar.Infow("✅ Paperwork hub shut down successfully")
	return nil
}

// closeComponents releases sessions, the broker connection, and the database
func (s *Server) closeComponents() {
	if s.audioMgr != nil {
		s.audioMgr.Close()
	}
	if s.events != nil {
		s.events.Close()
	}
	if s.db != nil {
		if err := s.db.Checkpoint(); err != nil {
			logging.LogError(err, "Final database checkpoint failed")
		}
		if err := s.db.Close(); err != nil {
			logging.LogError(err, "Failed to close database")
		}
	}
}

// handleHealth provides system health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"service":   "paperwork-hub",
		"timestamp": time.Now().UTC(),
		"components": map[string]interface{}{
			"extraction":    s.extractor != nil,
			"transcription": s.transcriber != nil,
			"events":        s.events.IsConnected(),
			"templates":     s.registry.Types(),
		},
	}

	if s.audioMgr != nil {
		health["audio_sessions"] = s.audioMgr.Count()
	}
	if !s.startedAt.IsZero() {
		health["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
	}

	if err := s.db.Ping(); err != nil {
		health["status"] = "degraded"
		health["database"] = map[string]interface{}{"reachable": false}
	} else if counts, err := s.db.RowCounts(); err == nil {
		health["database"] = map[string]interface{}{
			"reachable":  true,
			"row_counts": counts,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}
