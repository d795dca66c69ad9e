// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

// Package httpapi exposes the authentication flows over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/gotours/gotours/internal/auth"
	"github.com/gotours/gotours/internal/observability"
)

// Options carries optional Server dependencies.
type Options struct {
	// Metrics receives per-request and per-flow counters when set.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server serves the public authentication API.
type Server struct {
	addr       string
	svc        *auth.Service
	guard      *auth.SessionGuard
	metrics    *observability.Metrics
	logger     *slog.Logger
	engine     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates the API server.
// addr: listen address in "host:port" format (e.g., ":8080").
func NewServer(addr string, svc *auth.Service, guard *auth.SessionGuard, opts Options) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if guard == nil {
		return nil, oops.Errorf("session guard is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:    addr,
		svc:     svc,
		guard:   guard,
		metrics: opts.Metrics,
		logger:  logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestObserver())

	users := engine.Group("/api/v1/users")
	users.POST("/signup", s.handleSignup)
	users.POST("/login", s.handleLogin)
	users.POST("/forgot-password", s.handleForgotPassword)
	users.PATCH("/reset-password/:resetToken", s.handleResetPassword)

	users.PATCH("/update-password", s.requireAuth(), s.handleUpdatePassword)
	users.GET("/me", s.requireAuth(), s.handleMe)
	users.GET("", s.requireAuth(), s.requireRoles(auth.RoleAdmin), s.handleListAccounts)

	s.engine = engine
	return s, nil
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving the API.
// It returns an error channel that will receive any errors from the HTTP
// server after it starts. The channel is closed when the server stops
// gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("API server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("API server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("API server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("API server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// requestObserver logs each request and feeds the HTTP request counter.
func (s *Server) requestObserver() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		}
		s.logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
