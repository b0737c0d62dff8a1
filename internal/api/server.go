// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires the probe router and its middleware chain into a runnable
[http.Server].

Architecture:

  - The bot receives user traffic over long polling; this server only answers probes.
  - It acts as the composition root for the HTTP transport (chi router).
  - Only this package and cmd/bot are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/internal/platform/middleware"
)

// # Probe Budget

const (
	probeRPS        = 5
	probeBurst      = 10
	probeClientTTL  = 10 * time.Minute
	probeSweepEvery = time.Minute
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Server Initialization

// NewServer constructs the router with the middleware chain and registers the
// probe routes. The rate limiter sweeps idle clients until ctx is done.
func NewServer(ctx context.Context, port string, log *slog.Logger, users UserDirectory, checks ...Check) *Server {
	handler := &healthHandler{checks: checks, users: users}

	limiter := middleware.NewRateLimiter(probeRPS, probeBurst, probeClientTTL)
	go limiter.Run(ctx, probeSweepEvery)

	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(limiter))
	r.Use(middleware.PanicRecovery(log))
	r.Use(chimw.CleanPath)

	// # Probe Endpoints
	r.Get("/health", handler.liveness)
	r.Get("/ready", handler.readiness)
	r.Get("/users/{userID}", handler.userStatus)

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the routed handler, used by tests without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("probe_server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
