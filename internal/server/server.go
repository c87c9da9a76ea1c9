package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/stratus/internal/api"
	"github.com/UnknownOlympus/stratus/internal/dashboard"
	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/UnknownOlympus/stratus/internal/routes"
	"github.com/UnknownOlympus/stratus/internal/view"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether the weather backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options configures the dashboard server.
type Options struct {
	API         api.Interface
	Health      HealthChecker
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // served on /metrics
	Workers     int
	Sink        dashboard.Sink
	Unit        view.Unit
	Username    string
	Email       string
	LoadTimeout time.Duration // bounds the dashboard load and its weather fetches
}

// Server serves the pages of the weather client as JSON view models.
type Server struct {
	app      *fiber.App
	opts     Options
	log      *slog.Logger
	validate *validator.Validate
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	const defaultLoadTimeout = 15 * time.Second
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}
	if opts.Unit == "" {
		opts.Unit = view.Celsius
	}

	srv := &Server{
		opts:     opts,
		log:      opts.Logger,
		validate: validator.New(),
	}

	srv.app = fiber.New(fiber.Config{
		AppName:               "stratus",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          opts.LoadTimeout + 5*time.Second,
		ErrorHandler:          srv.handleError,
	})

	srv.app.Use(recover.New())
	srv.app.Use(srv.logRequests)

	srv.app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(routes.PageURL(routes.Dashboard))
	})
	srv.app.Get(routes.PageURL(routes.Dashboard), srv.getDashboard)
	srv.app.Get(routes.PageURL(routes.Locations), srv.getLocations)
	srv.app.Delete(routes.PageURL(routes.Locations)+"/:id", srv.deleteLocation)
	srv.app.Get(routes.PageURL(routes.AddLocation), srv.searchLocations)
	srv.app.Post(routes.PageURL(routes.AddLocation), srv.addLocation)
	srv.app.Get(routes.PageURL(routes.WeatherDetails), srv.getWeatherDetails)
	srv.app.Get(routes.PageURL(routes.Profile), srv.getProfile)
	srv.app.Get("/healthz", srv.healthz)
	if opts.Gatherer != nil {
		srv.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return srv
}

// App exposes the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("Dashboard server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError renders every failure as {"error": true, "message": ...}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.ErrorContext(c.UserContext(), "Request failed", "path", c.Path(), "status", code, "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.DebugContext(c.UserContext(), "Request served",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return err
}

// statusFor maps client and backend errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrEmptyQuery), errors.Is(err, api.ErrInvalidLocation):
		return fiber.StatusBadRequest
	case errors.Is(err, api.ErrNotFound), errors.Is(err, dashboard.ErrUnknownLocation):
		return fiber.StatusNotFound
	case errors.Is(err, api.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, api.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}
