// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     server
// Description: HTTP API and websocket observer hub for a running session
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Controller is the session surface the API drives. *session.Coordinator
// implements it.
type Controller interface {
	Start(ctx context.Context) (bool, error)
	Stop(ctx context.Context) (bool, error)
	Toggle(ctx context.Context) (bool, error)
	Reset(ctx context.Context) (bool, error)
	ClearConversation(ctx context.Context) error
	SwitchLanguages(ctx context.Context) error
	StopSpeaking(ctx context.Context) error
	Configure(ctx context.Context, s session.Settings) error

	State() session.State
	Level() float64
	Settings() session.Settings
	Conversation() *conversation.Log
	Subscribe() *session.Subscription
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Version        string
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8470,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		Version:      "1.0.0",
	}
}

// Server serves the HTTP API and the websocket event stream
type Server struct {
	httpServer *http.Server
	handler    *Handler
	logger     *logging.Logger
	config     Config

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server for the given controller. registry may be nil.
func New(cfg Config, ctl Controller, registry *health.Registry, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.New("server")
	}
	h := NewHandler(ctl, registry, cfg, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:     loggingMiddleware(logger, h),
			ReadTimeout: cfg.ReadTimeout,
			// WriteTimeout would cut long-lived websocket connections; the
			// hub sets per-message write deadlines instead.
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
		handler: h,
		logger:  logger,
		config:  cfg,
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// StartAsync binds the address and serves in a goroutine
func (s *Server) StartAsync() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("HTTP API listening", "address", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop closes websocket clients and shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP API")
	s.handler.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Address returns the bound address, or the configured one before start
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
		)
	})
}

// responseWrapper captures the status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
