package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/bnema/oneiro/internal/application"
	"github.com/bnema/oneiro/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Sessions is the orchestrator surface the API drives.
type Sessions interface {
	Start(ctx context.Context, text string, owner domain.UserID) (application.TurnResult, error)
	Answer(ctx context.Context, id domain.DreamID, text string) (application.TurnResult, error)
	Snapshot(ctx context.Context, id domain.DreamID) (application.SessionView, error)
}

// Dreams lists stored dreams.
type Dreams interface {
	ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Record, error)
}

type Server struct {
	echo     *echo.Echo
	sessions Sessions
	dreams   Dreams
	logger   zerolog.Logger
}

func NewServer(sessions Sessions, dreams Dreams, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		sessions: sessions,
		dreams:   dreams,
		logger:   logger,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := s.echo.Group("/api/v1")
	v1.POST("/dreams", s.startDream)
	v1.GET("/dreams", s.listDreams)
	v1.GET("/dreams/:id", s.getDream)
	v1.POST("/dreams/:id/answers", s.submitAnswer)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http api listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Status >= http.StatusInternalServerError {
				event = s.logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
