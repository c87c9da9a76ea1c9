package dashboard

import "github.com/UnknownOlympus/stratus/internal/models"

// Status is the state of one location's weather entry.
type Status int

const (
	// StatusPending means a fetch has been issued and has not resolved yet.
	StatusPending Status = iota
	// StatusReady means the entry holds a snapshot.
	StatusReady
	// StatusFailed means the last fetch failed. Reason says why.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is the cached weather of one location.
// A Failed entry keeps the snapshot of an earlier cycle, if there was one.
type Entry struct {
	Status   Status
	Snapshot *models.WeatherSnapshot
	Reason   string
}

// Phase is the state of the dashboard as a whole.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseEmpty
	PhasePopulated
	PhaseFailed // the first load failed, nothing to show
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseEmpty:
		return "empty"
	case PhasePopulated:
		return "populated"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Card pairs a saved location with its weather entry.
type Card struct {
	Location models.Location
	Entry    Entry
}

// State is a point-in-time copy of a session, safe to read without locking.
type State struct {
	Phase  Phase
	Reason string // reason of the last failed load, kept even when an older list is still shown
	Cards  []Card // in the order returned by the backend
}
