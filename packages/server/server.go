// Package server exposes runs, run history and reports over HTTP.
//
// Routes:
//
//	POST /run-tests        run the collection once and record the result
//	GET  /get-reports      report file names, newest first
//	GET  /get-run-history  the run ledger, newest first
//	GET  /get-run-stats    aggregate statistics over the ledger
//	GET  /metrics          ledger statistics for Prometheus
//	GET  /healthz          liveness
//	GET  /reports/<name>   rendered reports
//	GET  /*                dashboard assets from the public directory
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitboard/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/orchestrator"
)

// Runner executes one test run
type Runner interface {
	Run(ctx context.Context) (*orchestrator.Outcome, error)
}

// Server is the HTTP gateway
type Server struct {
	echo       *echo.Echo
	runner     Runner
	ledger     history.Ledger
	reportsDir string
	publicDir  string
	limiter    *rate.Limiter
	metrics    *metrics.PrometheusExporter
	logger     *slog.Logger
}

// Option is a functional option for Server
type Option func(*Server)

// WithReportsDir sets the directory reports are listed and served from
func WithReportsDir(dir string) Option {
	return func(s *Server) {
		s.reportsDir = dir
	}
}

// WithPublicDir serves the dashboard from dir when it exists
func WithPublicDir(dir string) Option {
	return func(s *Server) {
		s.publicDir = dir
	}
}

// WithRunRateLimit limits POST /run-tests to perMinute runs with the
// given burst. Zero disables the limit.
func WithRunRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the gateway and registers its routes
func New(runner Runner, ledger history.Ledger, opts ...Option) *Server {
	s := &Server{
		echo:       echo.New(),
		runner:     runner,
		ledger:     ledger,
		reportsDir: "reports",
		metrics:    metrics.NewPrometheusExporter(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error("panic recovered", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err, "stack", string(stack))
			return err
		},
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				s.logger.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Debug("request", attrs...)
			return nil
		},
	}))

	s.RegisterRoutes(s.echo)
	return s
}

// RegisterRoutes registers routes with the echo server
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.POST("/run-tests", s.RunTests, s.rateLimit)
	e.GET("/get-reports", s.GetReports)
	e.GET("/get-run-history", s.GetRunHistory)
	e.GET("/get-run-stats", s.GetRunStats)
	e.GET("/metrics", s.Metrics)
	e.GET("/healthz", s.Health)

	e.Static("/reports", s.reportsDir)
	if s.publicDir != "" {
		if info, err := os.Stat(s.publicDir); err == nil && info.IsDir() {
			e.Static("/", s.publicDir)
		} else {
			s.logger.Debug("public directory not found, dashboard disabled", "dir", s.publicDir)
		}
	}
}

// Handler returns the gateway as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight runs
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow() {
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "Too many test runs, try again later"})
		}
		return next(c)
	}
}
