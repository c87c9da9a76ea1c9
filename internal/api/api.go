package api

import (
	"context"
	"net/http"

	"github.com/UnknownOlympus/stratus/internal/models"
)

// LocationService is the location half of the weather backend: search, list, add and delete.
type LocationService interface {
	SearchLocations(ctx context.Context, query string) ([]models.SearchResult, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
	AddLocation(ctx context.Context, loc models.NewLocation) (*models.Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// WeatherService retrieves the weather snapshot of a saved location.
type WeatherService interface {
	GetWeather(ctx context.Context, id int64) (*models.WeatherSnapshot, error)
}

// Interface is everything the client consumes from the weather backend.
type Interface interface {
	LocationService
	WeatherService
}

// Geocoder answers free-text location searches directly, bypassing the backend's search endpoint.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
