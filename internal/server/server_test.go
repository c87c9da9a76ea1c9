package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/stratus/internal/api"
	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/UnknownOlympus/stratus/internal/models"
	"github.com/UnknownOlympus/stratus/internal/server"
	"github.com/UnknownOlympus/stratus/internal/view"
	"github.com/UnknownOlympus/stratus/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

func newServer(t *testing.T, health server.HealthChecker) (*server.Server, *mocks.Interface) {
	t.Helper()
	client := mocks.NewInterface(t)
	reg := prometheus.NewRegistry()
	srv := server.New(server.Options{
		API:         client,
		Health:      health,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:     metrics.NewMetrics(reg),
		Gatherer:    reg,
		Workers:     2,
		Unit:        view.Celsius,
		Username:    "demo_user",
		Email:       "demo@example.com",
		LoadTimeout: 2 * time.Second,
	})
	return srv, client
}

func do(t *testing.T, srv *server.Server, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, payload
}

func errorMessage(t *testing.T, payload []byte) string {
	t.Helper()
	var body struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.True(t, body.Error)
	return body.Message
}

func TestDashboard(t *testing.T) {
	t.Run("renders Paris at 18°C", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).Return([]models.Location{{ID: 1, Name: "Paris"}}, nil).Once()
		client.On("GetWeather", mock.Anything, int64(1)).
			Return(&models.WeatherSnapshot{Current: &models.CurrentConditions{Temperature: 18}}, nil).Once()

		resp, payload := do(t, srv, http.MethodGet, "/dashboard", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.Dashboard
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Equal(t, "populated", page.State)
		require.Len(t, page.Cards, 1)
		assert.Equal(t, "Paris", page.Cards[0].Name)
		assert.Equal(t, "18°C", page.Cards[0].Temperature)
		assert.Equal(t, "Feels like 18°C", page.Cards[0].FeelsLike)
	})

	t.Run("empty state", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).Return([]models.Location{}, nil).Once()

		_, payload := do(t, srv, http.MethodGet, "/dashboard", "")

		var page view.Dashboard
		require.NoError(t, json.Unmarshal(payload, &page))
		require.NotNil(t, page.Empty)
		assert.Equal(t, "No Locations Yet", page.Empty.Title)
	})

	t.Run("load failure is shown as state", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).Return(nil, assert.AnError).Once()

		resp, payload := do(t, srv, http.MethodGet, "/dashboard", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.Dashboard
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Equal(t, "failed", page.State)
		assert.Contains(t, page.Message, "Could not load your locations")
	})

	t.Run("root redirects to the dashboard", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		resp, _ := do(t, srv, http.MethodGet, "/", "")

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})
}

func TestLocations(t *testing.T) {
	t.Run("lists locations", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).
			Return([]models.Location{{ID: 1, Name: "Paris", Latitude: 48.8566, Longitude: 2.3522}}, nil).Once()

		resp, payload := do(t, srv, http.MethodGet, "/locations", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.Locations
		require.NoError(t, json.Unmarshal(payload, &page))
		require.Len(t, page.Items, 1)
		assert.Equal(t, "/weather-details?location_id=1", page.Items[0].DetailsURL)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).Return(nil, &api.Error{
			Op: "list locations", Status: http.StatusServiceUnavailable, Message: "maintenance", Err: api.ErrUnavailable,
		}).Once()

		resp, payload := do(t, srv, http.MethodGet, "/locations", "")

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "maintenance", errorMessage(t, payload))
	})

	t.Run("delete", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("DeleteLocation", mock.Anything, int64(3)).Return(nil).Once()

		resp, _ := do(t, srv, http.MethodDelete, "/locations/3", "")

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("delete unknown location", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("DeleteLocation", mock.Anything, int64(9)).
			Return(&api.Error{Op: "delete location", Status: http.StatusNotFound, Message: "Location not found", Err: api.ErrNotFound}).
			Once()

		resp, payload := do(t, srv, http.MethodDelete, "/locations/9", "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Location not found", errorMessage(t, payload))
	})

	t.Run("delete with invalid id", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		resp, _ := do(t, srv, http.MethodDelete, "/locations/abc", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAddLocation(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("SearchLocations", mock.Anything, "Paris").Return([]models.SearchResult{
			{Name: "Paris", Country: "France", Latitude: 48.85, Longitude: 2.35, DisplayName: "Paris, France"},
		}, nil).Once()

		resp, payload := do(t, srv, http.MethodGet, "/add-location?q=Paris", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.AddLocation
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Equal(t, "Paris", page.Query)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "Paris, France", page.Results[0].DisplayName)
		assert.False(t, page.Results[0].Adding)
	})

	t.Run("blank query is rejected without a request", func(t *testing.T) {
		srv, client := newServer(t, nil)

		resp, _ := do(t, srv, http.MethodGet, "/add-location?q=%20%20", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		client.AssertNotCalled(t, "SearchLocations", mock.Anything, mock.Anything)
	})

	t.Run("page without query", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		resp, payload := do(t, srv, http.MethodGet, "/add-location", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.AddLocation
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Empty(t, page.Results)
	})

	t.Run("search failure", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("SearchLocations", mock.Anything, "Paris").Return(nil, assert.AnError).Once()

		resp, payload := do(t, srv, http.MethodGet, "/add-location?q=Paris", "")

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "Failed to search locations", errorMessage(t, payload))
	})

	t.Run("concurrent clients do not share search state", func(t *testing.T) {
		srv, client := newServer(t, nil)
		started := make(chan struct{})
		release := make(chan struct{})

		client.On("SearchLocations", mock.Anything, "Paris").
			Return(func(_ context.Context, _ string) ([]models.SearchResult, error) {
				close(started)
				<-release
				return []models.SearchResult{{Name: "Paris", Country: "France", Latitude: 48.85, Longitude: 2.35}}, nil
			}).Once()
		client.On("SearchLocations", mock.Anything, "Tokyo").
			Return(nil, &api.Error{Op: "search locations", Status: http.StatusBadGateway, Message: "Geocoding service unavailable"}).
			Once()

		type outcome struct {
			status  int
			payload []byte
			err     error
		}
		slow := make(chan outcome, 1)
		go func() {
			resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/add-location?q=Paris", nil), 5000)
			if err != nil {
				slow <- outcome{err: err}
				return
			}
			defer resp.Body.Close()
			payload, err := io.ReadAll(resp.Body)
			slow <- outcome{status: resp.StatusCode, payload: payload, err: err}
		}()

		<-started

		resp, payload := do(t, srv, http.MethodGet, "/add-location?q=Tokyo", "")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "Geocoding service unavailable", errorMessage(t, payload))

		resp, payload = do(t, srv, http.MethodGet, "/add-location", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var blank view.AddLocation
		require.NoError(t, json.Unmarshal(payload, &blank))
		assert.Empty(t, blank.Alert, "another client's failure must not leak")
		assert.Empty(t, blank.Results)

		close(release)
		got := <-slow
		require.NoError(t, got.err)
		require.Equal(t, http.StatusOK, got.status)
		var page view.AddLocation
		require.NoError(t, json.Unmarshal(got.payload, &page))
		assert.Empty(t, page.Alert)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "Paris", page.Results[0].Name)
	})

	t.Run("add", func(t *testing.T) {
		srv, client := newServer(t, nil)
		created := &models.Location{ID: 5, Name: "Paris, France", Latitude: 48.85, Longitude: 2.35}

		client.On("AddLocation", mock.Anything, models.NewLocation{Name: "Paris, France", Latitude: 48.85, Longitude: 2.35}).
			Return(created, nil).Once()

		resp, payload := do(t, srv, http.MethodPost, "/add-location",
			`{"name":"Paris, France","latitude":48.85,"longitude":2.35}`)

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var loc models.Location
		require.NoError(t, json.Unmarshal(payload, &loc))
		assert.Equal(t, int64(5), loc.ID)
	})

	t.Run("zero coordinates are valid", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("AddLocation", mock.Anything, models.NewLocation{Name: "Null Island", Latitude: 0, Longitude: 0}).
			Return(&models.Location{ID: 6, Name: "Null Island"}, nil).Once()

		resp, _ := do(t, srv, http.MethodPost, "/add-location", `{"name":"Null Island","latitude":0,"longitude":0}`)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	for name, body := range map[string]string{
		"missing latitude":      `{"name":"Paris","longitude":2.35}`,
		"latitude out of range": `{"name":"Paris","latitude":91,"longitude":2.35}`,
		"blank name":            `{"name":"  ","latitude":48.85,"longitude":2.35}`,
		"malformed body":        `{"name":`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, client := newServer(t, nil)

			resp, _ := do(t, srv, http.MethodPost, "/add-location", body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			client.AssertNotCalled(t, "AddLocation", mock.Anything, mock.Anything)
		})
	}

	t.Run("backend rejects the location", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("AddLocation", mock.Anything, mock.Anything).Return(nil, &api.Error{
			Op: "add location", Status: http.StatusUnprocessableEntity, Message: "Location already exists",
			Err: api.ErrInvalidLocation,
		}).Once()

		resp, payload := do(t, srv, http.MethodPost, "/add-location", `{"name":"Paris","latitude":48.85,"longitude":2.35}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Location already exists", errorMessage(t, payload))
	})
}

func TestWeatherDetails(t *testing.T) {
	paris := models.Location{ID: 1, Name: "Paris", Latitude: 48.8566, Longitude: 2.3522}

	t.Run("renders the full forecast", func(t *testing.T) {
		srv, client := newServer(t, nil)
		daily := make([]models.DailyForecast, 0, 7)
		start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		for i := range 7 {
			daily = append(daily, models.DailyForecast{Date: start.AddDate(0, 0, i), TempMax: 20, TempMin: 10})
		}

		client.On("ListLocations", mock.Anything).Return([]models.Location{paris}, nil).Once()
		client.On("GetWeather", mock.Anything, int64(1)).Return(&models.WeatherSnapshot{
			Current: &models.CurrentConditions{Temperature: 18}, Daily: daily,
		}, nil).Once()

		resp, payload := do(t, srv, http.MethodGet, "/weather-details?location_id=1", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.Details
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Equal(t, "18°C", page.Temperature)
		assert.Len(t, page.Forecast, 7)
		assert.Equal(t, "48.8566, 2.3522", page.Coordinates)
	})

	t.Run("weather failure is shown on the page", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).Return([]models.Location{paris}, nil).Once()
		client.On("GetWeather", mock.Anything, int64(1)).
			Return(nil, &api.Error{Op: "get weather", Status: http.StatusBadGateway, Message: "upstream timeout"}).Once()

		resp, payload := do(t, srv, http.MethodGet, "/weather-details?location_id=1", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.Details
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Equal(t, "failed", page.Status)
		assert.Equal(t, "Weather unavailable: upstream timeout", page.Message)
	})

	t.Run("missing location id", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		resp, payload := do(t, srv, http.MethodGet, "/weather-details", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "location_id is required", errorMessage(t, payload))
	})

	t.Run("unknown location", func(t *testing.T) {
		srv, client := newServer(t, nil)

		client.On("ListLocations", mock.Anything).Return([]models.Location{paris}, nil).Once()

		resp, _ := do(t, srv, http.MethodGet, "/weather-details?location_id=2", "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestProfileHealthAndMetrics(t *testing.T) {
	t.Run("profile", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		resp, payload := do(t, srv, http.MethodGet, "/profile", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page view.Profile
		require.NoError(t, json.Unmarshal(payload, &page))
		assert.Equal(t, "demo_user", page.Username)
		assert.Equal(t, "Celsius (°C)", page.Label)
	})

	t.Run("healthy backend", func(t *testing.T) {
		srv, _ := newServer(t, healthFunc(func(context.Context) error { return nil }))

		resp, _ := do(t, srv, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		srv, _ := newServer(t, healthFunc(func(context.Context) error { return api.ErrUnavailable }))

		resp, payload := do(t, srv, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, errorMessage(t, payload), "weather backend unreachable")
	})

	t.Run("metrics", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		resp, _ := do(t, srv, http.MethodGet, "/add-location?q=%20", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, payload := do(t, srv, http.MethodGet, "/metrics", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(payload), `stratus_searches_total{outcome="rejected"} 1`)
	})
}
