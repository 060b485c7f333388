/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server assembles the service: storage, playback, audit, broadcast
// and the ops HTTP listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Skssssee/Musict/internal/api"
	"github.com/Skssssee/Musict/internal/auditlog"
	"github.com/Skssssee/Musict/internal/broadcast"
	"github.com/Skssssee/Musict/internal/calls"
	"github.com/Skssssee/Musict/internal/commands"
	"github.com/Skssssee/Musict/internal/config"
	"github.com/Skssssee/Musict/internal/db"
	"github.com/Skssssee/Musict/internal/events"
	"github.com/Skssssee/Musict/internal/logbuffer"
	"github.com/Skssssee/Musict/internal/player"
	"github.com/Skssssee/Musict/internal/resolver"
	"github.com/Skssssee/Musict/internal/store"
	"github.com/Skssssee/Musict/internal/streamcache"
	"github.com/Skssssee/Musict/internal/telemetry"
)

// Messenger delivers text to a chat. The real chat client is wired in by the
// frontend process; without one, messages go to the log.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Server bundles the playback services and the ops HTTP listener.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	db          *gorm.DB
	store       *store.Store
	cache       *streamcache.Cache
	transport   *calls.FFmpegTransport
	binding     *calls.Binding
	bus         *events.Bus
	manager     *player.Manager
	auditSvc    *auditlog.Service
	broadcaster *broadcast.Broadcaster
	commands    *commands.Router
	httpServer  *http.Server

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New wires every component. The messenger may be nil; a log-backed one is
// substituted so audit and broadcast stay functional in development. logBuf
// may be nil when log capture is not wanted.
func New(cfg *config.Config, messenger Messenger, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if messenger == nil {
		messenger = &logMessenger{logger: logger}
	}

	st := store.New(gormDB, cfg.OwnerID, cfg.LogChannelID, logger)
	bus := events.NewBus()

	cache := streamcache.New(
		resolver.NewYTDLP(cfg.YTDLPBin, cfg.CookiesFile, logger),
		streamcache.Config{
			TTL:            cfg.StreamCacheTTL,
			ResolveTimeout: cfg.ResolveTimeout,
			RedisAddr:      cfg.RedisAddr,
			RedisPassword:  cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
		},
		logger,
	)

	transport := calls.NewFFmpegTransport(cfg.FFmpegBin, logger)
	binding := calls.NewBinding(transport, cfg.JoinTimeout, logger)
	transport.OnEnd(binding.ReportStreamEnd)

	manager := player.NewManager(cache, binding, bus, logger)
	auditSvc := auditlog.NewService(st, messenger, bus, logger)
	broadcaster := broadcast.New(st, messenger, bus, cfg.BroadcastDelay, logger)
	cmdRouter := commands.NewRouter(st, manager, broadcaster, logger)

	router := telemetry.Router()
	api.New(cmdRouter, logger).RegisterRoutes(router)
	if logBuf != nil {
		router.Get("/logs", logBuf.Handler())
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		db:          gormDB,
		store:       st,
		cache:       cache,
		transport:   transport,
		binding:     binding,
		bus:         bus,
		manager:     manager,
		auditSvc:    auditSvc,
		broadcaster: broadcaster,
		commands:    cmdRouter,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
	return s, nil
}

// Start launches the background services and opens the command surface. The
// transport is marked ready last so no command can race the startup sequence.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(2)
	go func() {
		defer s.bgWG.Done()
		s.manager.Run(ctx)
	}()
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	s.binding.MarkReady()
}

// HTTPServer returns the ops listener (health, metrics, command API).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Commands returns the command router for embedding frontends.
func (s *Server) Commands() *commands.Router {
	return s.commands
}

// Close stops playback everywhere and releases resources.
func (s *Server) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.manager.Shutdown(shutdownCtx)
	s.binding.Shutdown(shutdownCtx)

	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()

	if err := s.cache.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("stream cache close failed")
	}
	return db.Close(s.db)
}

// logMessenger is the development fallback for the out-of-process chat client.
type logMessenger struct {
	logger zerolog.Logger
}

func (m *logMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	m.logger.Info().Int64("chat", chatID).Str("text", text).Msg("outbound message")
	return nil
}
