// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package server assembles the proxy HTTP server and owns its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlsvault/internal/control/middleware"
	"github.com/ManuGH/hlsvault/internal/gateway"
	"github.com/ManuGH/hlsvault/internal/health"
	"github.com/ManuGH/hlsvault/internal/log"
)

// ErrAlreadyStarted is returned by Run on a server that was started before.
var ErrAlreadyStarted = errors.New("server already started")

// Config holds the listener and timeout settings.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Stack           middleware.StackConfig
}

// DefaultConfig returns production timeouts for addr. The write timeout
// leaves room for a full upstream fetch plus its 501 retry.
func DefaultConfig(addr string, upstreamTimeout time.Duration) Config {
	return Config{
		ListenAddr:      addr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    2*upstreamTimeout + 10*time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		Stack: middleware.StackConfig{
			EnableMetrics: true,
			EnableLogging: true,
		},
	}
}

// ShutdownHook is a function that performs cleanup during graceful shutdown.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Server serves the gateway routes, health probes and /metrics.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	srv    *http.Server

	mu       sync.Mutex
	started  bool
	stopping bool
	addr     net.Addr
	hooks    []namedHook
}

// New builds the router. gw and hm must be non-nil.
func New(cfg Config, gw *gateway.Gateway, hm *health.Manager) (*Server, error) {
	if gw == nil || hm == nil {
		return nil, errors.New("server: gateway and health manager are required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	r := middleware.NewRouter(cfg.Stack)
	r.Get("/health", hm.ServeHealth)
	r.Get("/ready", hm.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(gw.Routes)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found","message":"No route matches the request"}` + "\n"))
	})

	return &Server{
		cfg:    cfg,
		logger: log.WithComponent("server"),
		srv: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout / 2,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}, nil
}

// Handler exposes the assembled router.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// RegisterShutdownHook registers cleanup run after the listener closes, in
// reverse registration order.
func (s *Server) RegisterShutdownHook(name string, hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, namedHook{name: name, hook: hook})
}

// Addr returns the bound address once Run is listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens and serves until ctx is cancelled or the server fails, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldEvent, "server.listening").
		Str("addr", ln.Addr().String()).
		Msg("proxy server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Str(log.FieldEvent, "server.failed").Msg("proxy server failed")
			errCh <- fmt.Errorf("proxy server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if shutdownErr := s.Shutdown(context.Background()); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutdown signal received")
		if err := s.Shutdown(ctx); err != nil {
			return err
		}
		return <-errCh
	}
}

// Shutdown drains in-flight requests and runs the shutdown hooks. It is safe
// to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	hooks := append([]namedHook(nil), s.hooks...)
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.hook(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
	}

	s.logger.Info().Str(log.FieldEvent, "server.stopped").Msg("proxy server stopped")
	return errors.Join(errs...)
}
