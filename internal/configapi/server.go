// Package configapi serves the public half of the session configuration to
// browser or remote clients, along with health and metrics endpoints.
package configapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const maxStreamBytes = 10 << 20

type Server struct {
	config   config.SessionConfig
	voices   texttospeech.VoiceLister
	gatherer prometheus.Gatherer
}

type Option func(*Server)

// WithVoiceLister exposes the voices of the configured speech vendor.
func WithVoiceLister(voices texttospeech.VoiceLister) Option {
	return func(s *Server) { s.voices = voices }
}

// WithGatherer exposes gatherer on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

func New(cfg config.SessionConfig, opts ...Option) *Server {
	s := &Server{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Echo builds the HTTP server with all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s.Register(e)
	return e
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/api/config", s.getConfig)
	e.GET("/api/health", s.health)
	e.POST("/api/stream", s.stream)
	if s.voices != nil {
		e.GET("/api/voices", s.listVoices)
	}
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) getConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.config.Public())
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "Server is running"})
}

// stream acknowledges uploaded audio. The audio itself is not retained.
func (s *Server) stream(c echo.Context) error {
	n, err := io.Copy(io.Discard, io.LimitReader(c.Request().Body, maxStreamBytes))
	if err != nil {
		return err
	}
	c.Logger().Debugf("received %d bytes of streamed audio", n)

	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Audio stream received"})
}

func (s *Server) listVoices(c echo.Context) error {
	voices, err := s.voices.Voices(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to fetch voices").SetInternal(err)
	}
	return c.JSON(http.StatusOK, voices)
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := http.StatusInternalServerError, "Something went wrong!"
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}
	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		c.Logger().Error(err)
	}

	if err := c.JSON(status, map[string]any{"success": false, "error": message}); err != nil {
		c.Logger().Error(err)
	}
}
