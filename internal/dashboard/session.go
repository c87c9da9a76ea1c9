package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/stratus/internal/api"
	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/UnknownOlympus/stratus/internal/models"
)

// Common errors of a dashboard session.
var (
	ErrSessionClosed   = errors.New("dashboard session is closed")
	ErrUnknownLocation = errors.New("location is not on the dashboard")
	ErrStaleResponse   = errors.New("weather response arrived after its location or cycle was dropped")
)

// Sink receives every snapshot that becomes Ready.
type Sink interface {
	Save(ctx context.Context, snapshot *models.WeatherSnapshot) error
}

// Options configures a Session.
type Options struct {
	API     api.Interface
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Workers int  // concurrent weather fetches, <= 0 means one per location
	Sink    Sink // optional
}

// Session is the state of one dashboard view: the saved locations and their weather.
// It lives until Close, which cancels every request still in flight. Responses that
// arrive after Close, after their location was removed, or after a newer load cycle
// started are dropped.
type Session struct {
	api     api.Interface
	log     *slog.Logger
	metrics *metrics.Metrics
	workers int
	sink    Sink

	ctx    context.Context // lifetime of the view
	cancel context.CancelFunc

	mu          sync.Mutex
	store       *LocationStore
	cache       *WeatherCache
	generation  uint64 // incremented by every successful load
	cycleCancel context.CancelFunc
	cycleDone   chan struct{}
	closed      bool
	updates     chan struct{}
}

// NewSession creates a session bound to ctx. Cancelling ctx has the same effect on
// in-flight requests as Close.
func NewSession(ctx context.Context, opts Options) *Session {
	sctx, cancel := context.WithCancel(ctx)
	return &Session{
		api:     opts.API,
		log:     opts.Logger,
		metrics: opts.Metrics,
		workers: opts.Workers,
		sink:    opts.Sink,
		ctx:     sctx,
		cancel:  cancel,
		store:   NewLocationStore(),
		cache:   NewWeatherCache(),
		updates: make(chan struct{}, 1),
	}
}

// Load fetches the saved locations. On success it replaces the held list, drops the
// weather of locations that are gone and starts a cycle fetching every location once.
// On failure the previous list stays and the failure is recorded in the state.
func (s *Session) Load(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	reqCtx, stop := s.bind(ctx)
	defer stop()

	locations, err := s.api.ListLocations(reqCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load locations", "error", err)
		s.store.Fail(reason(err))
		s.notify()
		return fmt.Errorf("failed to load locations: %w", err)
	}

	s.store.Replace(locations)
	s.cache.Retain(s.store.IDs())
	for _, loc := range locations {
		s.cache.MarkPending(loc.ID)
	}
	s.startCycle(locations)
	s.notify()

	s.log.DebugContext(ctx, "Locations loaded", "count", len(locations))

	return nil
}

// Fetch refreshes the weather of one held location outside of a load cycle.
func (s *Session) Fetch(ctx context.Context, id int64) (Entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{}, ErrSessionClosed
	}
	if !s.store.Contains(id) {
		s.mu.Unlock()
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownLocation, id)
	}
	gen := s.generation
	s.cache.MarkPending(id)
	s.notify()
	s.mu.Unlock()

	reqCtx, stop := s.bind(ctx)
	defer stop()

	return s.fetch(reqCtx, gen, id)
}

// Add asks the backend to create a location. Nothing is inserted locally; callers
// reload or navigate away afterwards.
func (s *Session) Add(ctx context.Context, name string, lat, lon float64) (*models.Location, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}

	reqCtx, stop := s.bind(ctx)
	defer stop()

	loc, err := s.api.AddLocation(reqCtx, models.NewLocation{Name: name, Latitude: lat, Longitude: lon})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to add location", "name", name, "error", err)
		return nil, fmt.Errorf("failed to add location: %w", err)
	}

	s.log.InfoContext(ctx, "Location added", "id", loc.ID, "name", loc.Name)

	return loc, nil
}

// Remove deletes a location. On success the location and its weather are dropped
// together; a fetch for it that is still running will be discarded. On failure
// nothing changes.
func (s *Session) Remove(ctx context.Context, id int64) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	reqCtx, stop := s.bind(ctx)
	defer stop()

	if err := s.api.DeleteLocation(reqCtx, id); err != nil {
		s.log.ErrorContext(ctx, "Failed to remove location", "location", id, "error", err)
		return fmt.Errorf("failed to remove location %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.store.Remove(id)
	s.cache.Delete(id)
	s.notify()

	s.log.InfoContext(ctx, "Location removed", "location", id)

	return nil
}

// Wait blocks until every fetch of the current load cycle has settled or ctx is done.
// It returns immediately when no cycle was started.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.cycleDone
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Updates is signalled whenever the list or an entry changes. Signals are coalesced;
// the channel is closed by Close.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// State returns a copy of the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{Phase: s.store.Phase(), Reason: s.store.loadErr}
	for _, loc := range s.store.locations {
		entry, _ := s.cache.Get(loc.ID)
		state.Cards = append(state.Cards, Card{Location: loc, Entry: entry})
	}

	return state
}

// Card returns the location and weather entry of one held location.
func (s *Session) Card(id int64) (Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.store.Get(id)
	if !ok {
		return Card{}, false
	}
	entry, _ := s.cache.Get(id)

	return Card{Location: loc, Entry: entry}, true
}

// Entry returns the cached weather entry of a location.
func (s *Session) Entry(id int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Get(id)
}

// Close ends the session and cancels everything still in flight. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	close(s.updates)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// bind derives a request context that is cancelled by either ctx or the session.
func (s *Session) bind(ctx context.Context) (context.Context, func()) {
	reqCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)

	return reqCtx, func() {
		stop()
		cancel()
	}
}

// notify signals a change without blocking. Callers hold s.mu.
func (s *Session) notify() {
	if s.closed {
		return
	}
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// reason is the text shown for a failed request.
func reason(err error) string {
	return api.Message(err, err.Error())
}
