package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/UnknownOlympus/stratus/internal/models"
)

// startCycle begins a load cycle that fetches the weather of every location once.
// A cycle still running is cancelled. Callers hold s.mu.
func (s *Session) startCycle(locations []models.Location) {
	if s.cycleCancel != nil {
		s.cycleCancel()
	}

	s.generation++
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.cycleCancel = cancel
	s.cycleDone = done

	go s.runCycle(ctx, s.generation, slices.Clone(locations), done)
}

// runCycle starts the worker pool, feeds it every location and waits for all workers to finish.
func (s *Session) runCycle(ctx context.Context, gen uint64, locations []models.Location, done chan<- struct{}) {
	defer close(done)

	numWorkers := s.workers
	if numWorkers <= 0 || numWorkers > len(locations) {
		numWorkers = len(locations)
	}

	s.log.DebugContext(ctx, "Starting weather fetch cycle",
		"cycle", gen,
		"jobs", len(locations),
		"num_workers", numWorkers)

	jobs := make(chan models.Location, len(locations))
	var wgr sync.WaitGroup

	for i := 1; i <= numWorkers; i++ {
		wgr.Add(1)
		go s.worker(ctx, i, gen, &wgr, jobs)
	}

	for _, loc := range locations {
		jobs <- loc
	}
	close(jobs)

	wgr.Wait()
	s.log.DebugContext(ctx, "Weather fetch cycle finished", "cycle", gen)
}

// worker fetches the weather of the locations it receives until the jobs channel is closed.
// Jobs left over after the cycle was cancelled are skipped without a request.
func (s *Session) worker(ctx context.Context, idx int, gen uint64, wg *sync.WaitGroup, jobs <-chan models.Location) {
	defer wg.Done()
	for loc := range jobs {
		if ctx.Err() != nil {
			s.metrics.WeatherFetches.WithLabelValues("skipped").Inc()
			continue
		}

		s.metrics.ActiveWorkers.Inc()
		s.log.DebugContext(ctx, "Fetching weather", "worker", idx, "location", loc.ID)

		if _, err := s.fetch(ctx, gen, loc.ID); err == nil {
			s.log.DebugContext(ctx, "Worker stored weather", "worker", idx, "location", loc.ID)
		}

		s.metrics.ActiveWorkers.Dec()
	}
}

// fetch requests the weather of one location and stores the outcome, unless the
// response is no longer wanted.
func (s *Session) fetch(ctx context.Context, gen uint64, id int64) (Entry, error) {
	snapshot, err := s.api.GetWeather(ctx, id)
	if err == nil && snapshot == nil {
		err = errors.New("backend returned no weather")
	}

	s.mu.Lock()
	if s.closed || gen != s.generation || !s.store.Contains(id) {
		closed := s.closed
		s.mu.Unlock()

		s.metrics.WeatherFetches.WithLabelValues("discarded").Inc()
		s.log.DebugContext(ctx, "Discarding weather response", "location", id, "cycle", gen)

		if closed {
			return Entry{}, ErrSessionClosed
		}
		return Entry{}, fmt.Errorf("%w: location %d", ErrStaleResponse, id)
	}

	if err != nil {
		s.cache.Fail(id, reason(err))
		entry, _ := s.cache.Get(id)
		s.notify()
		s.mu.Unlock()

		s.metrics.WeatherFetches.WithLabelValues("failure").Inc()
		s.log.ErrorContext(ctx, "Failed to fetch weather", "location", id, "error", err)

		return entry, fmt.Errorf("failed to fetch weather for location %d: %w", id, err)
	}

	if loc, ok := s.store.Get(id); ok && snapshot.LocationName == "" {
		snapshot.LocationName = loc.Name
	}
	snapshot.LocationID = id
	s.cache.Store(id, snapshot)
	entry, _ := s.cache.Get(id)
	s.notify()
	s.mu.Unlock()

	s.metrics.WeatherFetches.WithLabelValues("success").Inc()

	if s.sink != nil {
		if err = s.sink.Save(ctx, snapshot); err != nil {
			s.log.ErrorContext(ctx, "Failed to archive weather snapshot", "location", id, "error", err)
		}
	}

	return entry, nil
}
