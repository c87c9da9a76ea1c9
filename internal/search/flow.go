package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/UnknownOlympus/stratus/internal/api"
	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/UnknownOlympus/stratus/internal/models"
)

// Inline alert texts used when the backend gives no message of its own.
const (
	SearchFailedMessage = "Failed to search locations"
	AddFailedMessage    = "Failed to add location"
)

// Common errors of the add-location flow.
var (
	ErrSearchPending = errors.New("a search is already in progress")
	ErrAddPending    = errors.New("this location is already being added")
)

// Flow is the state behind the add-location page: one search at a time, the last
// results, the candidates being added and a dismissible alert.
type Flow struct {
	api     api.LocationService
	log     *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	searching bool
	results   []models.SearchResult
	adding    map[string]struct{} // keyed by SearchResult.Key
	alert     string
}

// New creates an add-location flow backed by the given location service.
func New(client api.LocationService, log *slog.Logger, metrics *metrics.Metrics) *Flow {
	return &Flow{
		api:     client,
		log:     log,
		metrics: metrics,
		adding:  make(map[string]struct{}),
	}
}

// Search looks up candidates for a free-text query. Empty and whitespace-only queries
// are rejected before any request. Results keep the order given by the backend.
func (f *Flow) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		f.metrics.Searches.WithLabelValues("rejected").Inc()
		return nil, api.ErrEmptyQuery
	}

	f.mu.Lock()
	if f.searching {
		f.mu.Unlock()
		return nil, ErrSearchPending
	}
	f.searching = true
	f.results = nil
	f.alert = ""
	f.mu.Unlock()

	results, err := f.api.SearchLocations(ctx, query)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.searching = false

	if err != nil {
		f.alert = api.Message(err, SearchFailedMessage)
		f.metrics.Searches.WithLabelValues("failure").Inc()
		f.log.ErrorContext(ctx, "Search failed", "query", query, "error", err)
		return nil, fmt.Errorf("failed to search locations: %w", err)
	}

	f.results = results
	f.metrics.Searches.WithLabelValues("success").Inc()
	f.log.DebugContext(ctx, "Search finished", "query", query, "results", len(results))

	return slices.Clone(results), nil
}

// Add saves a candidate under its display name. While the request is running the
// candidate reports IsAdding; a second Add of the same candidate is refused.
func (f *Flow) Add(ctx context.Context, result models.SearchResult) (*models.Location, error) {
	key := result.Key()

	f.mu.Lock()
	if _, busy := f.adding[key]; busy {
		f.mu.Unlock()
		return nil, ErrAddPending
	}
	f.adding[key] = struct{}{}
	f.alert = ""
	f.mu.Unlock()

	name := result.DisplayName
	if name == "" {
		name = result.Name
	}

	loc, err := f.api.AddLocation(ctx, models.NewLocation{
		Name:      name,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.adding, key)

	if err != nil {
		f.alert = api.Message(err, AddFailedMessage)
		f.log.ErrorContext(ctx, "Failed to add location", "name", name, "error", err)
		return nil, fmt.Errorf("failed to add location: %w", err)
	}

	f.log.InfoContext(ctx, "Location added", "id", loc.ID, "name", loc.Name)

	return loc, nil
}

// IsAdding reports whether an Add of this candidate is in flight.
func (f *Flow) IsAdding(result models.SearchResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.adding[result.Key()]
	return ok
}

// Searching reports whether a search is in flight.
func (f *Flow) Searching() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.searching
}

// Results returns the results of the last successful search.
func (f *Flow) Results() []models.SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.results)
}

// Alert returns the current inline error message, empty when there is none.
func (f *Flow) Alert() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.alert
}

// DismissError clears the inline error message.
func (f *Flow) DismissError() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alert = ""
}
