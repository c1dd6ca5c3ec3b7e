// Package opshttp runs the operational sidecar for the engine: a small
// HTTP listener exposing liveness and Prometheus metrics alongside the
// MCP transport.
package opshttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"lorekeeper/internal/metrics"
)

// Server exposes /health and /metrics over HTTP.
type Server struct {
	echo    *echo.Echo
	logger  *zap.Logger
	addr    string
	version string
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewServer builds the sidecar around an existing metrics registry.
func NewServer(m *metrics.Metrics, logger *zap.Logger, addr, version string) (*Server, error) {
	if m == nil {
		return nil, fmt.Errorf("metrics registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if addr == "" {
		addr = "localhost:9190"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		logger:  logger,
		addr:    addr,
		version: version,
	}

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return s, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// Handler returns the underlying HTTP handler, mainly for tests and
// embedding in other muxes.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("starting ops listener", zap.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down ops listener")
	return s.echo.Shutdown(ctx)
}
