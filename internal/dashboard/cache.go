package dashboard

import "github.com/UnknownOlympus/stratus/internal/models"

// WeatherCache holds the latest weather entry per location id.
// It is not safe for concurrent use; the owning Session serialises access.
type WeatherCache struct {
	entries map[int64]Entry
}

// NewWeatherCache returns an empty cache.
func NewWeatherCache() *WeatherCache {
	return &WeatherCache{entries: make(map[int64]Entry)}
}

// Get returns the entry of a location.
func (wc *WeatherCache) Get(id int64) (Entry, bool) {
	entry, ok := wc.entries[id]
	return entry, ok
}

// MarkPending marks a location as awaiting its fetch. A snapshot from an earlier
// cycle stays visible until the fresh one replaces it.
func (wc *WeatherCache) MarkPending(id int64) {
	entry := wc.entries[id]
	entry.Status = StatusPending
	entry.Reason = ""
	wc.entries[id] = entry
}

// Store replaces the entry of a location with a fresh snapshot.
func (wc *WeatherCache) Store(id int64, snapshot *models.WeatherSnapshot) {
	wc.entries[id] = Entry{Status: StatusReady, Snapshot: snapshot}
}

// Fail records a failed fetch for a location.
func (wc *WeatherCache) Fail(id int64, reason string) {
	entry := wc.entries[id]
	entry.Status = StatusFailed
	entry.Reason = reason
	wc.entries[id] = entry
}

// Delete drops the entry of a location.
func (wc *WeatherCache) Delete(id int64) {
	delete(wc.entries, id)
}

// Retain drops every entry whose id is not in ids.
func (wc *WeatherCache) Retain(ids []int64) {
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	for id := range wc.entries {
		if _, ok := keep[id]; !ok {
			delete(wc.entries, id)
		}
	}
}

// Len returns the number of entries.
func (wc *WeatherCache) Len() int {
	return len(wc.entries)
}
