// Package server exposes the rendered feed over HTTP for hosts that cannot link
// the library directly.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"rssfeed/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ShutdownTimeout = 10 * time.Second
	EmbedBodyLimit  = "1M"
	healthPath      = "/healthz"
)

type Renderer interface {
	Render(ctx context.Context, cfg domain.AggregationConfig) (string, error)
	Embed(ctx context.Context, cfg domain.AggregationConfig, content string) (string, error)
}

type Server struct {
	echo     *echo.Echo
	renderer Renderer
	cfg      domain.AggregationConfig
	log      *slog.Logger
}

func New(renderer Renderer, cfg domain.AggregationConfig, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == healthPath
		},
		LogStatus:     true,
		LogURI:        true,
		LogError:      true,
		LogMethod:     true,
		LogLatency:    true,
		HandleError:   true,
		LogValuesFunc: s.logRequest,
	}))
	e.Use(middleware.Recover())

	e.GET("/feed", s.handleFeed)
	e.POST("/embed", s.handleEmbed, middleware.BodyLimit(EmbedBodyLimit))
	e.GET(healthPath, s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server is shut down.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

func (s *Server) handleFeed(c echo.Context) error {
	fragment, err := s.renderer.Render(c.Request().Context(), s.cfg)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "feed is unavailable").SetInternal(err)
	}

	return c.HTML(http.StatusOK, fragment)
}

func (s *Server) handleEmbed(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read content").SetInternal(err)
	}

	embedded, err := s.renderer.Embed(c.Request().Context(), s.cfg, string(body))
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "feed is unavailable").SetInternal(err)
	}

	return c.HTML(http.StatusOK, embedded)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	ctx := c.Request().Context()

	if v.Error != nil {
		s.log.ErrorContext(ctx, "Failed to serve request",
			"error", v.Error,
			"method", v.Method,
			"uri", v.URI,
			"status", v.Status,
			"latencyMs", v.Latency.Milliseconds())

		return nil
	}

	s.log.DebugContext(ctx, "Request is served",
		"method", v.Method,
		"uri", v.URI,
		"status", v.Status,
		"latencyMs", v.Latency.Milliseconds())

	return nil
}
