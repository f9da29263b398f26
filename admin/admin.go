// Package admin exposes the operational HTTP endpoint: liveness, a stats
// snapshot, and Prometheus metrics for the chat core.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crowirc/crowd/config"
	"github.com/crowirc/crowd/server"
)

// Server is the admin HTTP server.
type Server struct {
	cfg  *config.Config
	chat *server.Server
	echo *echo.Echo
	log  *slog.Logger
}

// New builds the admin server and registers its routes.
func New(cfg *config.Config, chat *server.Server, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{cfg: cfg, chat: chat, echo: e, log: log}

	e.Use(requestMetrics)
	e.GET("/healthz", s.handleHealth)
	e.GET("/stats", s.handleStats)
	e.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(server.Metrics, promhttp.HandlerOpts{})))

	return s
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("admin endpoint listening", "addr", s.cfg.AdminListenAddress())
	err := s.echo.Start(s.cfg.AdminListenAddress())
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the endpoint down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	channels := s.chat.Manager().Names()
	sort.Strings(channels)

	return c.JSON(http.StatusOK, map[string]any{
		"server":   s.cfg.Server.Name,
		"clients":  s.chat.Registry().Count(),
		"channels": channels,
		"uptime":   s.chat.Uptime().Round(time.Second).String(),
	})
}
