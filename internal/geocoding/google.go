package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/stratus/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to search locations
// through the Google Maps geocoding service.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	limit  int             // limit caps the number of candidates returned
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider initializes a new GoogleProvider with the given client, result limit and logger.
func NewGoogleProvider(client GoogleAPIClient, limit int, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, limit: limit, log: log}
}

// Search geocodes the free-text query with the Google Maps Geocoding API and converts every
// result into a search candidate. Locality, first-level administrative area and country are
// read from the address components; the formatted address becomes the display name.
func (gp *GoogleProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	gp.log.DebugContext(ctx, "Searching using Google Maps", "query", query)

	req := maps.GeocodingRequest{Address: query}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode query: %w", err)
	}

	results := make([]models.SearchResult, 0, len(geocodeResponse))
	for _, item := range geocodeResponse {
		if gp.limit > 0 && len(results) >= gp.limit {
			break
		}
		results = append(results, googleResult(item))
	}

	gp.log.DebugContext(ctx, "Google Maps search finished", "query", query, "results", len(results))

	return results, nil
}

func googleResult(item maps.GeocodingResult) models.SearchResult {
	var name, admin1, country string
	for _, component := range item.AddressComponents {
		switch {
		case slices.Contains(component.Types, "locality") && name == "":
			name = component.LongName
		case slices.Contains(component.Types, "administrative_area_level_1"):
			admin1 = component.LongName
		case slices.Contains(component.Types, "country"):
			country = component.LongName
		}
	}
	if name == "" && len(item.AddressComponents) > 0 {
		name = item.AddressComponents[0].LongName
	}

	display := item.FormattedAddress
	if display == "" {
		display = models.ComposeDisplayName(name, admin1, country)
	}

	return models.SearchResult{
		Name:        name,
		Country:     country,
		Admin1:      admin1,
		Latitude:    item.Geometry.Location.Lat,
		Longitude:   item.Geometry.Location.Lng,
		DisplayName: display,
	}
}
