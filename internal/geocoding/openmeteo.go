package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/stratus/internal/models"
	"golang.org/x/time/rate"
)

// OpenMeteoBaseURL is the Open-Meteo geocoding search endpoint.
const OpenMeteoBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

// OpenMeteoProvider searches places with the free Open-Meteo geocoding API.
type OpenMeteoProvider struct {
	client  HTTPClient
	baseURL string
	limit   int
	limiter *rate.Limiter
	log     *slog.Logger
}

type openMeteoResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
	} `json:"results"`
}

// NewOpenMeteoProvider creates an Open-Meteo provider limited to rateLimit requests per second.
func NewOpenMeteoProvider(rateLimit, limit int, log *slog.Logger) *OpenMeteoProvider {
	const timeout = 10
	return NewOpenMeteoProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		OpenMeteoBaseURL,
		rate.NewLimiter(rate.Limit(rateLimit), 1),
		limit,
		log,
	)
}

// NewOpenMeteoProviderWithClient creates an Open-Meteo provider with a custom HTTP client and endpoint.
func NewOpenMeteoProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	limit int,
	log *slog.Logger,
) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		client:  client,
		baseURL: baseURL,
		limit:   limit,
		limiter: limiter,
		log:     log,
	}
}

// Search returns the places whose name matches the query. The API omits "results"
// entirely when nothing matches, which is reported as an empty slice.
func (op *OpenMeteoProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := op.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(op.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	params := reqURL.Query()
	params.Set("name", query)
	params.Set("count", strconv.Itoa(op.limit))
	params.Set("language", "en")
	params.Set("format", "json")
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := op.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		op.log.ErrorContext(ctx, "Open-Meteo geocoding error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("open-meteo API returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload openMeteoResponse
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode open-meteo response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		results = append(results, models.SearchResult{
			Name:        item.Name,
			Country:     item.Country,
			Admin1:      item.Admin1,
			Latitude:    item.Latitude,
			Longitude:   item.Longitude,
			DisplayName: models.ComposeDisplayName(item.Name, item.Admin1, item.Country),
		})
	}

	op.log.DebugContext(ctx, "Open-Meteo search finished", "query", query, "results", len(results))

	return results, nil
}
