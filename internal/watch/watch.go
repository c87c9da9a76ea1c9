package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is used when no positive interval is configured.
const DefaultInterval = 30 * time.Minute

// Refresher reloads a dashboard and waits for its weather.
type Refresher interface {
	Load(ctx context.Context) error
	Wait(ctx context.Context) error
}

// Watcher reloads a long-lived dashboard on a fixed interval.
type Watcher struct {
	refresher Refresher
	interval  time.Duration
	log       *slog.Logger
	onRefresh func(ctx context.Context)
	cron      *cron.Cron
}

// New creates a watcher. onRefresh, when set, runs after every settled reload.
func New(refresher Refresher, interval time.Duration, log *slog.Logger, onRefresh func(ctx context.Context)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Watcher{
		refresher: refresher,
		interval:  interval,
		log:       log,
		onRefresh: onRefresh,
		// Prevent overlapping reloads
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log}))),
	}
}

// Run reloads once right away and then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.refresh(ctx)

	spec := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(spec, func() { w.refresh(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	w.log.InfoContext(ctx, "Watching dashboard", "interval", w.interval)
	w.cron.Start()

	<-ctx.Done()

	stopped := w.cron.Stop()
	<-stopped.Done()
	w.log.InfoContext(ctx, "Watcher stopped")

	return nil
}

// RunOnce performs a single reload and waits until its fetches settle.
func (w *Watcher) RunOnce(ctx context.Context) error {
	start := time.Now()

	if err := w.refresher.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload dashboard: %w", err)
	}
	if err := w.refresher.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for weather: %w", err)
	}

	w.log.DebugContext(ctx, "Dashboard refreshed", "duration", time.Since(start))

	return nil
}

func (w *Watcher) refresh(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil {
		w.log.ErrorContext(ctx, "Scheduled refresh failed", "error", err)
	}
	if w.onRefresh != nil && ctx.Err() == nil {
		w.onRefresh(ctx)
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
