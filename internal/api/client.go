package api

import (
	"bytes"
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

	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/UnknownOlympus/stratus/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const userAgent = "Stratus-Weather-Client/1.0 (https://github.com/UnknownOlympus/stratus)"

// errAbandoned marks a request whose caller cancelled it or let its deadline pass.
// Such requests say nothing about the backend and never count against the breaker.
var errAbandoned = errors.New("request abandoned by caller")

// Client talks to the weather backend over its REST API.
// Every operation issues at most one request; there are no retries.
type Client struct {
	client   HTTPClient                // HTTP client for making requests
	baseURL  string                    // Base URL of the backend
	token    string                    // Bearer token identifying the current user
	log      *slog.Logger              // Logger for logging operations
	metrics  *metrics.Metrics          // Metrics for request accounting
	limiter  *rate.Limiter             // Rate limiter for outgoing requests
	breaker  *gobreaker.CircuitBreaker // Fails fast while the backend is down
	geocoder Geocoder                  // Optional direct search collaborator
	validate *validator.Validate
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RateLimit  int // requests per second, 0 disables limiting
	HTTPClient HTTPClient
	Geocoder   Geocoder // answers SearchLocations instead of the backend when set
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// New creates a backend client from the given options.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if opts.Logger == nil || opts.Metrics == nil {
		return nil, errors.New("logger and metrics are required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		const defaultTimeout = 10 * time.Second
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}

	const tripAfter = 5
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weather-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errAbandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.Warn("Circuit breaker changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		client:   httpClient,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		limiter:  limiter,
		breaker:  breaker,
		geocoder: opts.Geocoder,
		validate: validator.New(),
	}, nil
}

// SearchLocations sends a free-text query to the search collaborator and returns its
// candidates in the order they were returned.
func (c *Client) SearchLocations(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if c.geocoder != nil {
		c.log.DebugContext(ctx, "Searching locations with direct geocoder", "query", query)
		results, err := c.geocoder.Search(ctx, query)
		if err != nil {
			return nil, &Error{Op: "search locations", Err: err}
		}
		return results, nil
	}

	var payload searchPayload
	path := "/api/locations/search?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, "search locations", http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	return payload.toModels(), nil
}

// ListLocations fetches all locations of the current user in backend order.
func (c *Client) ListLocations(ctx context.Context) ([]models.Location, error) {
	var payload listPayload
	if err := c.do(ctx, "list locations", http.MethodGet, "/api/locations", nil, &payload); err != nil {
		return nil, err
	}

	locations := make([]models.Location, 0, len(payload.Locations))
	for _, loc := range payload.Locations {
		locations = append(locations, loc.toModel())
	}

	return locations, nil
}

// AddLocation validates and creates a new location.
func (c *Client) AddLocation(ctx context.Context, loc models.NewLocation) (*models.Location, error) {
	loc.Name = strings.TrimSpace(loc.Name)
	if err := c.validate.Struct(loc); err != nil {
		return nil, &Error{Op: "add location", Message: "Invalid location: " + err.Error(), Err: ErrInvalidLocation}
	}

	var payload locationPayload
	if err := c.do(ctx, "add location", http.MethodPost, "/api/locations", loc, &payload); err != nil {
		return nil, err
	}

	created := payload.toModel()
	return &created, nil
}

// DeleteLocation deletes the location with the given id.
func (c *Client) DeleteLocation(ctx context.Context, id int64) error {
	return c.do(ctx, "delete location", http.MethodDelete, "/api/locations/"+strconv.FormatInt(id, 10), nil, nil)
}

// GetWeather fetches the current weather snapshot of a location.
func (c *Client) GetWeather(ctx context.Context, id int64) (*models.WeatherSnapshot, error) {
	var payload weatherPayload
	if err := c.do(ctx, "get weather", http.MethodGet, "/api/weather/"+strconv.FormatInt(id, 10), nil, &payload); err != nil {
		return nil, err
	}

	snapshot := payload.toModel(id, time.Now().UTC())
	return &snapshot, nil
}

// Health checks that the backend answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// do executes a single request. Transport failures and 5xx responses count against the
// circuit breaker; other non-2xx responses are returned as *Error with the backend's message.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: operation, Err: fmt.Errorf("rate limit exceeded: %w", err)}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: operation, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: operation, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.DebugContext(ctx, "Backend request", "operation", operation, "method", method, "path", path,
		"request_id", requestID)

	startTime := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, doErr := c.client.Do(req)
		if doErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errAbandoned, doErr)
			}
			return nil, doErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			return nil, statusError(operation, resp.StatusCode, raw)
		}
		return resp, nil
	})
	c.metrics.RequestSeconds.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())

	if err != nil {
		c.metrics.APIErrors.WithLabelValues(operation).Inc()
		return c.wrapFailure(ctx, operation, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return &Error{Op: operation, Err: errors.New("unexpected result type from circuit breaker")}
	}
	defer resp.Body.Close()

	c.metrics.APIRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: operation, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.APIErrors.WithLabelValues(operation).Inc()
		apiErr := statusError(operation, resp.StatusCode, raw)
		c.log.WarnContext(ctx, "Backend rejected request", "operation", operation, "status", resp.StatusCode,
			"detail", apiErr.Message, "request_id", requestID)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err = json.Unmarshal(raw, out); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse backend response", "operation", operation, "error", err,
			"body", string(raw))
		return &Error{Op: operation, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

func (c *Client) wrapFailure(ctx context.Context, operation string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.WarnContext(ctx, "Backend request rejected by circuit breaker", "operation", operation)
		return &Error{Op: operation, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	if errors.Is(err, errAbandoned) {
		c.log.DebugContext(ctx, "Backend request abandoned", "operation", operation, "error", err)
		return &Error{Op: operation, Err: err}
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.metrics.APIRequests.WithLabelValues(operation, strconv.Itoa(apiErr.Status)).Inc()
		c.log.ErrorContext(ctx, "Backend failed", "operation", operation, "status", apiErr.Status, "error", err)
		return apiErr
	}

	c.log.ErrorContext(ctx, "Backend request failed", "operation", operation, "error", err)
	return &Error{Op: operation, Err: fmt.Errorf("failed to execute request: %w", err)}
}
