package dashboard

import (
	"slices"

	"github.com/UnknownOlympus/stratus/internal/models"
)

// LocationStore holds the saved locations of the current user.
// It is not safe for concurrent use; the owning Session serialises access.
type LocationStore struct {
	locations []models.Location
	loaded    bool   // at least one load succeeded
	loadErr   string // reason of the last failed load, cleared by a successful one
}

// NewLocationStore returns an empty store that has not been loaded yet.
func NewLocationStore() *LocationStore {
	return &LocationStore{}
}

// Replace sets the held list to locations, preserving their order.
func (ls *LocationStore) Replace(locations []models.Location) {
	ls.locations = slices.Clone(locations)
	ls.loaded = true
	ls.loadErr = ""
}

// Fail records a failed load. The held list is left as it was.
func (ls *LocationStore) Fail(reason string) {
	ls.loadErr = reason
}

// Remove drops the location with the given id and reports whether it was held.
func (ls *LocationStore) Remove(id int64) bool {
	before := len(ls.locations)
	ls.locations = slices.DeleteFunc(ls.locations, func(l models.Location) bool { return l.ID == id })
	return len(ls.locations) != before
}

// Get returns the location with the given id.
func (ls *LocationStore) Get(id int64) (models.Location, bool) {
	idx := slices.IndexFunc(ls.locations, func(l models.Location) bool { return l.ID == id })
	if idx < 0 {
		return models.Location{}, false
	}
	return ls.locations[idx], true
}

// Contains reports whether the location with the given id is held.
func (ls *LocationStore) Contains(id int64) bool {
	_, ok := ls.Get(id)
	return ok
}

// Locations returns a copy of the held list.
func (ls *LocationStore) Locations() []models.Location {
	return slices.Clone(ls.locations)
}

// IDs returns the identifiers of the held list.
func (ls *LocationStore) IDs() []int64 {
	ids := make([]int64, 0, len(ls.locations))
	for _, l := range ls.locations {
		ids = append(ids, l.ID)
	}
	return ids
}

// Phase derives the dashboard phase from the load history.
func (ls *LocationStore) Phase() Phase {
	switch {
	case !ls.loaded && ls.loadErr != "":
		return PhaseFailed
	case !ls.loaded:
		return PhaseLoading
	case len(ls.locations) == 0:
		return PhaseEmpty
	default:
		return PhasePopulated
	}
}
