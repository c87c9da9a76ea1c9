package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/stratus/internal/models"
	"golang.org/x/time/rate"
)

// NominatimBaseURL -- Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	limit   int           // Maximum number of candidates per search
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Keeps requests within the fair-use policy
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents one element of the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat         string `json:"lat"`          // Latitude as string
	Lon         string `json:"lon"`          // Longitude as string
	Name        string `json:"name"`         // Name of the matched object
	DisplayName string `json:"display_name"` // Full display name
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

const nominatimUserAgent = "Stratus-Weather-Client/1.0 (https://github.com/UnknownOlympus/stratus)"

// NewNominatimProvider creates a new Nominatim geocoding provider.
// Uses the public Nominatim API endpoint by default.
func NewNominatimProvider(limit int, log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second},
		rate.NewLimiter(rate.Every(time.Second), 1), limit, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client and limiter.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(
	client HTTPClient,
	limiter *rate.Limiter,
	limit int,
	log *slog.Logger,
) *NominatimProvider {
	return &NominatimProvider{
		client:  client,
		baseURL: NominatimBaseURL,
		limit:   limit,
		log:     log,
		limiter: limiter,
		// User-Agent MUST include valid contact info per Nominatim usage policy:
		// https://operations.osmfoundation.org/policies/nominatim/
		userAgent: nominatimUserAgent,
	}
}

// Search looks up locations matching the query using the Nominatim API.
//
// Uses a progressive fallback strategy for detailed queries:
// 1. Try the full query (e.g. "Hrabovets, Polova street, 12")
// 2. Try the query without its last component
// 3. Try without the last two components
// 4. Try the first component only (village/town/city)
//
// The first variation that yields candidates wins. No candidates at all is not an error.
func (np *NominatimProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	np.log.DebugContext(ctx, "Searching using Nominatim", "query", query)

	queryVariations := np.generateQueryFallbacks(query)

	for idx, variation := range queryVariations {
		results, err := np.searchSingle(ctx, variation)
		if err == nil {
			if idx > 0 {
				np.log.InfoContext(ctx, "Found locations using fallback query",
					"original", query,
					"fallback", variation,
					"fallback_level", idx)
			}
			return results, nil
		}

		// If it's not an empty response error, return immediately (API error, invalid coords, etc.)
		if !errors.Is(err, ErrNominatimEmptyResponse) {
			return nil, err
		}

		np.log.DebugContext(ctx, "Query variation returned no results, trying fallback",
			"variation", variation,
			"fallback_level", idx)
	}

	np.log.DebugContext(ctx, "All query fallbacks exhausted", "query", query,
		"variations_tried", len(queryVariations))

	return []models.SearchResult{}, nil
}

// generateQueryFallbacks lists the query followed by simpler variations of it.
// A place and its qualifier ("Paris, Texas") are searched as typed. Longer queries
// drop their middle components one at a time, always keeping the place and its
// last qualifier, so a fallback never answers for a different region.
func (np *NominatimProvider) generateQueryFallbacks(query string) []string {
	variations := []string{query}

	var parts []string
	for _, part := range strings.Split(query, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}

	const minDetailed = 3
	if len(parts) < minDetailed {
		return variations
	}

	for drop := 2; drop < len(parts); drop++ {
		kept := append([]string{parts[0]}, parts[drop:]...)
		variations = append(variations, strings.Join(kept, ", "))
	}

	return variations
}

// searchSingle performs a single search request without fallback logic.
func (np *NominatimProvider) searchSingle(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(np.limit))
	params.Set("addressdetails", "1")
	params.Set("accept-language", "en")
	reqURL.RawQuery = params.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var items []nominatimResponse
	if err = json.Unmarshal(body, &items); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		result, convErr := item.toResult()
		if convErr != nil {
			return nil, convErr
		}
		results = append(results, result)
	}

	return results, nil
}

func (item nominatimResponse) toResult() (models.SearchResult, error) {
	lat, err := strconv.ParseFloat(item.Lat, 64)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, item.Lat)
	}
	lon, err := strconv.ParseFloat(item.Lon, 64)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, item.Lon)
	}

	name := item.Name
	for _, candidate := range []string{item.Address.City, item.Address.Town, item.Address.Village} {
		if name != "" {
			break
		}
		name = candidate
	}

	display := item.DisplayName
	if display == "" {
		display = models.ComposeDisplayName(name, item.Address.State, item.Address.Country)
	}

	return models.SearchResult{
		Name:        name,
		Country:     item.Address.Country,
		Admin1:      item.Address.State,
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: display,
	}, nil
}
