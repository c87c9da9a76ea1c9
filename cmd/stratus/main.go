package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/stratus/internal/api"
	"github.com/UnknownOlympus/stratus/internal/archive"
	"github.com/UnknownOlympus/stratus/internal/config"
	"github.com/UnknownOlympus/stratus/internal/geocoding"
	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/UnknownOlympus/stratus/internal/view"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// searchCandidates bounds the results asked from a direct geocoding provider.
const searchCandidates = 10

const usage = `usage: stratus <command> [flags]

commands:
  serve       run the headless dashboard server
  dashboard   load the dashboard once and print it
  watch       print the dashboard and refresh it periodically
  search      search locations by name
  add         add a location by name and coordinates, or by search result
  remove      remove a saved location
  locations   list saved locations
  details     show the weather details of a location
  profile     show the profile page
  history     show archived weather of a location`

// app bundles the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	client  *api.Client
	unit    view.Unit
	archive *archive.Archive
	pool    *pgxpool.Pool
}

// main is the entry point of the application.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Cancel everything on interrupt so long-running commands shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	application, err := newApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize stratus: %v", err)
	}
	defer application.close()

	if err = application.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "stratus:", err)
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		logger.ErrorContext(ctx, "Command failed", "command", os.Args[1], "error", err)
		fmt.Fprintln(os.Stderr, "stratus:", api.Message(err, err.Error()))
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	unit, err := view.ParseUnit(cfg.Profile.Unit)
	if err != nil {
		return nil, err
	}

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	opts := api.Options{
		BaseURL:   cfg.API.BaseURL,
		Token:     cfg.API.Token,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Logger:    logger,
		Metrics:   appMetrics,
	}

	// Searches go to the backend unless a direct geocoding provider is configured.
	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:   geocoding.ProviderType(cfg.Search.Provider),
		APIKey: cfg.Search.APIKey,
		Limit:  searchCandidates,
		Logger: logger,
	})
	switch {
	case errors.Is(err, geocoding.ErrBackendSearch):
		logger.DebugContext(ctx, "Location search served by the backend")
	case err != nil:
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	default:
		opts.Geocoder = geoProvider
		logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Search.Provider)
	}

	client, err := api.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	application := &app{
		cfg:     cfg,
		log:     logger,
		reg:     reg,
		metrics: appMetrics,
		client:  client,
		unit:    unit,
	}

	if cfg.Archive.Enabled() {
		pool, errDB := archive.NewDatabase(ctx, cfg.Archive.DSN)
		if errDB != nil {
			return nil, fmt.Errorf("failed to connect to archive: %w", errDB)
		}
		application.pool = pool
		application.archive = archive.New(pool, logger, appMetrics)

		if errDB = application.archive.EnsureSchema(ctx); errDB != nil {
			pool.Close()
			return nil, errDB
		}
		logger.InfoContext(ctx, "Snapshot archive enabled")
	}

	return application, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
// Logs go to stderr so command output on stdout stays clean.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
