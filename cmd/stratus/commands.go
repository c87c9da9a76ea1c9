package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/UnknownOlympus/stratus/internal/dashboard"
	"github.com/UnknownOlympus/stratus/internal/search"
	"github.com/UnknownOlympus/stratus/internal/server"
	"github.com/UnknownOlympus/stratus/internal/view"
	"github.com/UnknownOlympus/stratus/internal/watch"
)

const (
	shutdownTimeout = 10 * time.Second
	loadTimeout     = 30 * time.Second
	historyLimit    = 20
)

var (
	errUsage           = errors.New("invalid usage")
	errArchiveDisabled = errors.New("snapshot archive is not configured, set STRATUS_ARCHIVE_DSN")
	errNoResults       = errors.New("no locations matched the query")
)

func (a *app) run(ctx context.Context, command string, args []string) error {
	out := os.Stdout

	switch command {
	case "serve":
		return a.serve(ctx, args)
	case "dashboard":
		return a.dashboard(ctx, out)
	case "watch":
		return a.watch(ctx, out, args)
	case "search":
		return a.search(ctx, out, args)
	case "add":
		return a.add(ctx, out, args)
	case "remove":
		return a.remove(ctx, out, args)
	case "locations":
		return a.locations(ctx, out)
	case "details":
		return a.details(ctx, out, args)
	case "profile":
		return view.RenderProfile(out, view.NewProfile(a.cfg.Profile.Username, a.cfg.Profile.Email, a.unit))
	case "history":
		return a.history(ctx, out, args)
	default:
		return errUsage
	}
}

func (a *app) newSession(ctx context.Context) *dashboard.Session {
	opts := dashboard.Options{
		API:     a.client,
		Logger:  a.log,
		Metrics: a.metrics,
		Workers: a.cfg.Workers,
	}
	// A nil *Archive must not end up as a non-nil Sink.
	if a.archive != nil {
		opts.Sink = a.archive
	}

	return dashboard.NewSession(ctx, opts)
}

func (a *app) serve(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := flags.Int("port", a.cfg.Port, "port to listen on")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	opts := server.Options{
		API:         a.client,
		Health:      a.client,
		Logger:      a.log,
		Metrics:     a.metrics,
		Gatherer:    a.reg,
		Workers:     a.cfg.Workers,
		Unit:        a.unit,
		Username:    a.cfg.Profile.Username,
		Email:       a.cfg.Profile.Email,
		LoadTimeout: loadTimeout,
	}
	if a.archive != nil {
		opts.Sink = a.archive
	}
	srv := server.New(opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(fmt.Sprintf(":%d", *port))
	}()

	a.log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard server failed: %w", err)
	case <-ctx.Done():
	}

	a.log.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dashboard server: %w", err)
	}

	a.log.InfoContext(ctx, "Application stopped gracefully.")
	return nil
}

func (a *app) dashboard(ctx context.Context, out io.Writer) error {
	session := a.newSession(ctx)
	defer session.Close()

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	// A failed load still renders, the page shows the failure.
	if err := session.Load(ctx); err != nil {
		a.log.WarnContext(ctx, "Dashboard load failed", "error", err)
	}
	if err := session.Wait(ctx); err != nil {
		return err
	}

	return view.RenderDashboard(out, view.NewDashboard(session.State(), a.unit))
}

func (a *app) watch(ctx context.Context, out io.Writer, args []string) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := flags.Duration("interval", a.cfg.Interval, "time between refreshes")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	session := a.newSession(ctx)
	defer session.Close()

	watcher := watch.New(session, *interval, a.log, func(context.Context) {
		if err := view.RenderDashboard(out, view.NewDashboard(session.State(), a.unit)); err != nil {
			a.log.ErrorContext(ctx, "Failed to render dashboard", "error", err)
		}
	})

	return watcher.Run(ctx)
}

func (a *app) search(ctx context.Context, out io.Writer, args []string) error {
	query, err := queryArg("search", args)
	if err != nil {
		return err
	}

	flow := search.New(a.client, a.log, a.metrics)
	if _, err = flow.Search(ctx, query); err != nil {
		return err
	}

	return view.RenderAddLocation(out, view.NewAddLocation(query, flow.Results(), flow.Alert(), flow.IsAdding))
}

func (a *app) add(ctx context.Context, out io.Writer, args []string) error {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	name := flags.String("name", "", "location name")
	lat := flags.Float64("lat", 0, "latitude")
	lon := flags.Float64("lon", 0, "longitude")
	query := flags.String("query", "", "search for the location instead of giving coordinates")
	pick := flags.Int("pick", 0, "index of the search result to add")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	if *query != "" {
		flow := search.New(a.client, a.log, a.metrics)
		results, err := flow.Search(ctx, *query)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return errNoResults
		}
		if *pick < 0 || *pick >= len(results) {
			return fmt.Errorf("%w: pick must be between 0 and %d", errUsage, len(results)-1)
		}

		loc, err := flow.Add(ctx, results[*pick])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Added %s (id %d)\n", loc.Name, loc.ID)
		return err
	}

	if *name == "" {
		return errUsage
	}

	session := a.newSession(ctx)
	defer session.Close()

	loc, err := session.Add(ctx, *name, *lat, *lon)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Added %s (id %d)\n", loc.Name, loc.ID)
	return err
}

func (a *app) remove(ctx context.Context, out io.Writer, args []string) error {
	id, err := idArg("remove", args)
	if err != nil {
		return err
	}

	session := a.newSession(ctx)
	defer session.Close()

	// Remove only knows locations the session has loaded.
	if err = session.Load(ctx); err != nil {
		return err
	}
	if err = session.Remove(ctx, id); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Removed location %d\n", id)
	return err
}

func (a *app) locations(ctx context.Context, out io.Writer) error {
	locations, err := a.client.ListLocations(ctx)
	if err != nil {
		return err
	}

	return view.RenderLocations(out, view.NewLocations(locations))
}

func (a *app) details(ctx context.Context, out io.Writer, args []string) error {
	id, err := idArg("details", args)
	if err != nil {
		return err
	}

	session := a.newSession(ctx)
	defer session.Close()

	if err = session.Load(ctx); err != nil {
		return err
	}
	if err = session.Wait(ctx); err != nil {
		return err
	}

	card, ok := session.Card(id)
	if !ok {
		return fmt.Errorf("%w: %d", dashboard.ErrUnknownLocation, id)
	}

	return view.RenderDetails(out, view.NewDetails(card, a.unit))
}

func (a *app) history(ctx context.Context, out io.Writer, args []string) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := flags.Int("limit", historyLimit, "number of snapshots to show")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	if a.archive == nil {
		return errArchiveDisabled
	}

	id, err := idArg("history", flags.Args())
	if err != nil {
		return err
	}

	snapshots, err := a.archive.History(ctx, id, *limit)
	if err != nil {
		return err
	}

	return view.RenderHistory(out, view.NewHistory(id, snapshots, a.unit))
}

func queryArg(command string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s takes exactly one query", errUsage, command)
	}
	return args[0], nil
}

func idArg(command string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s takes exactly one location id", errUsage, command)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid location id %q", errUsage, args[0])
	}
	return id, nil
}
