package models

import "time"

// Location is a saved city tracked by the current user.
// It is assigned an ID by the backend and is never edited afterwards, only deleted.
type Location struct {
	ID        int64     `json:"id"`         // ID is the opaque server-assigned identifier.
	Name      string    `json:"name"`       // Name is the display name chosen when the location was added.
	Latitude  float64   `json:"latitude"`   // Latitude of the location.
	Longitude float64   `json:"longitude"`  // Longitude of the location.
	CreatedAt time.Time `json:"created_at"` // CreatedAt is when the backend stored the location.
}

// Coordinates returns the location's point.
func (l Location) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// NewLocation describes a location to be created.
type NewLocation struct {
	Name      string  `json:"name"      validate:"required,max=200"`
	Latitude  float64 `json:"latitude"  validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}
