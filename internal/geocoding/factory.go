package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"googlemaps.github.io/maps"
)

// ProviderType names the collaborator that answers location searches.
type ProviderType string

const (
	// ProviderTypeBackend leaves searches to the weather backend's own endpoint.
	ProviderTypeBackend ProviderType = "backend"
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeOpenMeteo represents the Open-Meteo geocoding API.
	ProviderTypeOpenMeteo ProviderType = "openmeteo"
)

// ErrBackendSearch is returned by NewProvider when searches stay with the backend,
// so no direct provider is built.
var ErrBackendSearch = errors.New("location search is served by the weather backend")

// ErrUnsupportedProvider is returned for provider names stratus does not know.
var ErrUnsupportedProvider = errors.New("unsupported search provider")

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // empty means the backend
	APIKey    string       // required by google
	RateLimit int          // requests per second, 0 picks the provider's fair-use default
	Limit     int          // candidates per search, 0 means DefaultLimit
	Logger    *slog.Logger
}

// DefaultLimit is the number of candidates asked for when the config leaves it unset.
const DefaultLimit = 10

// Fair-use request rates for the free services.
const (
	nominatimRateLimit = 1
	openMeteoRateLimit = 5
)

// ParseProviderType normalizes a configured provider name.
// Blank names select the backend.
func ParseProviderType(raw string) (ProviderType, error) {
	kind := ProviderType(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case "":
		return ProviderTypeBackend, nil
	case ProviderTypeBackend, ProviderTypeGoogle, ProviderTypeNominatim, ProviderTypeOpenMeteo:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, raw)
	}
}

// NewProvider builds the direct search provider selected by config.
// When searches stay with the backend it returns ErrBackendSearch and no provider.
func NewProvider(config ProviderConfig) (Provider, error) {
	kind, err := ParseProviderType(string(config.Type))
	if err != nil {
		return nil, err
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	switch kind {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		if config.RateLimit > nominatimRateLimit {
			config.Logger.Warn("Nominatim allows one request per second, ignoring the configured rate",
				"configured", config.RateLimit)
		}
		return NewNominatimProvider(config.Limit, config.Logger), nil
	case ProviderTypeOpenMeteo:
		if config.RateLimit <= 0 {
			config.RateLimit = openMeteoRateLimit
		}
		return NewOpenMeteoProvider(config.RateLimit, config.Limit, config.Logger), nil
	default:
		return nil, ErrBackendSearch
	}
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Limit, config.Logger), nil
}
