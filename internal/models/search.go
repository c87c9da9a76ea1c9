package models

import (
	"strconv"
	"strings"
)

// SearchResult is a candidate location returned by a geocoding lookup.
// It is transient and never persisted by the client.
type SearchResult struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Admin1      string  `json:"admin1,omitempty"` // Admin1 is the optional administrative region.
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
}

// Key identifies a candidate in the add flow.
// Coordinates alone are not unique between candidates, so the name is part of the key.
func (r SearchResult) Key() string {
	return strconv.FormatFloat(r.Latitude, 'f', -1, 64) + "|" +
		strconv.FormatFloat(r.Longitude, 'f', -1, 64) + "|" +
		strings.ToLower(strings.TrimSpace(r.Name))
}

// Region returns "admin1, country" or just the country when no region is known.
func (r SearchResult) Region() string {
	if r.Admin1 == "" {
		return r.Country
	}
	if r.Country == "" {
		return r.Admin1
	}
	return r.Admin1 + ", " + r.Country
}

// ComposeDisplayName builds "name, admin1, country", skipping empty parts.
func ComposeDisplayName(name, admin1, country string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{name, admin1, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Coordinates returns the candidate's point.
func (r SearchResult) Coordinates() Coordinates {
	return Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}
