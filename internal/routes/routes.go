package routes

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Page names of the navigation surface.
const (
	Dashboard      = "Dashboard"
	AddLocation    = "AddLocation"
	Locations      = "Locations"
	WeatherDetails = "WeatherDetails"
	Profile        = "Profile"
)

// LocationIDParam is the query parameter carrying the location of the weather-details page.
const LocationIDParam = "location_id"

var pages = map[string]string{
	Dashboard:      "/dashboard",
	AddLocation:    "/add-location",
	Locations:      "/locations",
	WeatherDetails: "/weather-details",
	Profile:        "/profile",
}

// Errors returned by LocationIDFrom.
var (
	ErrMissingLocationID = errors.New("location_id is required")
	ErrInvalidLocationID = errors.New("location_id must be a positive integer")
)

// PageURL maps a page name, optionally followed by "?query", to its path.
// Unknown names become "/" plus the lower-cased name.
func PageURL(page string) string {
	name, query, hasQuery := strings.Cut(page, "?")

	path, ok := pages[name]
	if !ok {
		path = "/" + strings.ToLower(name)
	}

	if hasQuery {
		return path + "?" + query
	}
	return path
}

// WeatherDetailsURL is the path of the weather-details page of one location.
func WeatherDetailsURL(id int64) string {
	return PageURL(fmt.Sprintf("%s?%s=%d", WeatherDetails, LocationIDParam, id))
}

// LocationIDFrom parses the location of the weather-details page from its query values.
func LocationIDFrom(values url.Values) (int64, error) {
	raw := strings.TrimSpace(values.Get(LocationIDParam))
	if raw == "" {
		return 0, ErrMissingLocationID
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLocationID, raw)
	}

	return id, nil
}
