package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"
)

type Config struct {
	Port         string        `env:"PORT" env-default:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
}

type Server struct {
	echo *echo.Echo
	cfg  Config
	log  *slog.Logger
}

// New builds an echo server wired with recovery, request-id, CORS,
// distributed tracing, and slog request logging. serviceName identifies this
// process (worker or coordinator) in emitted spans.
func New(cfg Config, log *slog.Logger, serviceName string) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(otelecho.Middleware(serviceName))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			log.Info("request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", status,
				"latency", time.Since(start),
			)
			return err
		}
	})

	e.HTTPErrorHandler = errorHandler

	return &Server{echo: e, cfg: cfg, log: log}
}

// errorHandler translates an error returned by a worker or coordinator
// handler (an AppError such as a mapper/reducer error, an unknown registry
// id or an unknown job id; an echo.HTTPError; anything else as a 500) into
// the JSON error body every engine caller expects.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	} else if appErr, ok := err.(*appErrors.AppError); ok {
		code = appErrors.HTTPStatus(appErr)
		msg = appErr.Message
	}

	_ = c.JSON(code, map[string]any{"error": msg, "code": code})
}

func (s *Server) Start() error {
	s.log.Info("starting http server", "port", s.cfg.Port)
	return s.echo.Start(":" + s.cfg.Port)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
