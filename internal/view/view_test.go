package view_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/UnknownOlympus/stratus/internal/dashboard"
	"github.com/UnknownOlympus/stratus/internal/models"
	"github.com/UnknownOlympus/stratus/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(date string, high, low float64) models.DailyForecast {
	parsed, _ := time.Parse(time.DateOnly, date)
	return models.DailyForecast{Date: parsed, TempMax: high, TempMin: low}
}

func parisCard() dashboard.Card {
	rain := 1.3
	daily := []models.DailyForecast{
		day("2024-01-01", 20.4, 12.2),
		day("2024-01-02", 19.6, 11.5),
		day("2024-01-03", 18, 10),
		day("2024-01-04", 17, 9),
	}
	daily[0].Precipitation = &rain

	return dashboard.Card{
		Location: models.Location{ID: 1, Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
		Entry: dashboard.Entry{
			Status: dashboard.StatusReady,
			Snapshot: &models.WeatherSnapshot{
				LocationID: 1,
				Current:    &models.CurrentConditions{Temperature: 18, WeatherCode: 2},
				Daily:      daily,
			},
		},
	}
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		celsius float64
		unit    view.Unit
		want    string
	}{
		{18, view.Celsius, "18°C"},
		{17.5, view.Celsius, "18°C"},
		{17.49, view.Celsius, "17°C"},
		{-2.5, view.Celsius, "-2°C"},
		{-0.4, view.Celsius, "0°C"},
		{18, view.Fahrenheit, "64°F"},
		{100, view.Fahrenheit, "212°F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, view.Temperature(tt.celsius, tt.unit))
	}
	assert.Equal(t, "20°", view.Degrees(20.4, view.Celsius))
}

func TestParseUnit(t *testing.T) {
	for raw, want := range map[string]view.Unit{"celsius": view.Celsius, "C": view.Celsius, " Fahrenheit ": view.Fahrenheit, "f": view.Fahrenheit} {
		unit, err := view.ParseUnit(raw)
		require.NoError(t, err)
		assert.Equal(t, want, unit)
	}

	_, err := view.ParseUnit("kelvin")
	require.ErrorIs(t, err, view.ErrUnknownUnit)
}

func TestNewCard(t *testing.T) {
	t.Run("ready shows temperature and three forecast rows", func(t *testing.T) {
		card := view.NewCard(parisCard(), view.Celsius, view.DashboardForecastDays)

		assert.Equal(t, "Paris", card.Name)
		assert.Equal(t, "ready", card.Status)
		assert.Equal(t, "18°C", card.Temperature)
		assert.Equal(t, "Feels like 18°C", card.FeelsLike)
		assert.Equal(t, "cloudy", card.Condition)
		require.Len(t, card.Forecast, 3)
		assert.Equal(t, "Mon 20° / 12°", card.Forecast[0].String())
		assert.Equal(t, "Tue 20° / 12°", card.Forecast[1].String())
		assert.Equal(t, "1.3 mm", card.Forecast[0].Precipitation)
		assert.Equal(t, "/weather-details?location_id=1", card.DetailsURL)
	})

	t.Run("fahrenheit", func(t *testing.T) {
		card := view.NewCard(parisCard(), view.Fahrenheit, view.DashboardForecastDays)

		assert.Equal(t, "64°F", card.Temperature)
		assert.Equal(t, "Mon 69° / 54°", card.Forecast[0].String())
	})

	t.Run("pending shows the placeholder", func(t *testing.T) {
		card := view.NewCard(dashboard.Card{Location: models.Location{ID: 2, Name: "Rome"}}, view.Celsius, 3)

		assert.Equal(t, "pending", card.Status)
		assert.Equal(t, view.LoadingText, card.Message)
		assert.Empty(t, card.Temperature)
	})

	t.Run("failed shows the reason", func(t *testing.T) {
		card := view.NewCard(dashboard.Card{
			Location: models.Location{ID: 2, Name: "Rome"},
			Entry:    dashboard.Entry{Status: dashboard.StatusFailed, Reason: "upstream timeout"},
		}, view.Celsius, 3)

		assert.Equal(t, "failed", card.Status)
		assert.Equal(t, "Weather unavailable: upstream timeout", card.Message)
		assert.False(t, card.Stale)
		assert.Empty(t, card.Temperature)
	})

	t.Run("failed refresh keeps the last reading visible", func(t *testing.T) {
		stale := parisCard()
		stale.Entry.Status = dashboard.StatusFailed
		stale.Entry.Reason = "upstream timeout"

		card := view.NewCard(stale, view.Celsius, view.DashboardForecastDays)

		assert.Equal(t, "failed", card.Status)
		assert.True(t, card.Stale)
		assert.Equal(t, "Weather unavailable: upstream timeout", card.Message)
		assert.Equal(t, "18°C", card.Temperature)
		require.Len(t, card.Forecast, 3)

		var out bytes.Buffer
		page := view.Dashboard{State: "populated", Cards: []view.Card{card}}
		require.NoError(t, view.RenderDashboard(&out, page))
		assert.Contains(t, out.String(), "18°C")
		assert.Contains(t, out.String(), "Weather unavailable: upstream timeout (last known: Mon 20° / 12°")

		out.Reset()
		require.NoError(t, view.RenderDetails(&out, view.NewDetails(stale, view.Celsius)))
		assert.Contains(t, out.String(), "Weather unavailable: upstream timeout")
		assert.Contains(t, out.String(), "2024-01-04")
	})
}

func TestNewDashboard(t *testing.T) {
	t.Run("empty state", func(t *testing.T) {
		page := view.NewDashboard(dashboard.State{Phase: dashboard.PhaseEmpty}, view.Celsius)

		require.NotNil(t, page.Empty)
		assert.Equal(t, "No Locations Yet", page.Empty.Title)
		assert.Equal(t, "/add-location", page.Empty.ActionURL)
		assert.Empty(t, page.Cards)
	})

	t.Run("first load failed", func(t *testing.T) {
		page := view.NewDashboard(dashboard.State{Phase: dashboard.PhaseFailed, Reason: "database down"}, view.Celsius)

		assert.Equal(t, "failed", page.State)
		assert.Equal(t, "Could not load your locations: database down", page.Message)
	})

	t.Run("Paris displays 18°C", func(t *testing.T) {
		state := dashboard.State{Phase: dashboard.PhasePopulated, Cards: []dashboard.Card{parisCard()}}

		page := view.NewDashboard(state, view.Celsius)

		require.Len(t, page.Cards, 1)
		assert.Equal(t, "18°C", page.Cards[0].Temperature)

		var out bytes.Buffer
		require.NoError(t, view.RenderDashboard(&out, page))
		assert.Contains(t, out.String(), "Paris")
		assert.Contains(t, out.String(), "18°C")
		assert.Contains(t, out.String(), "Mon 20° / 12°, Tue 20° / 12°, Wed 18° / 10°")
		assert.NotContains(t, out.String(), "Thu")
	})
}

func TestNewDetails(t *testing.T) {
	page := view.NewDetails(parisCard(), view.Celsius)

	assert.Len(t, page.Forecast, 4)
	assert.Equal(t, "48.8566, 2.3522", page.Coordinates)
	assert.Equal(t, "/dashboard", page.BackURL)

	var out bytes.Buffer
	require.NoError(t, view.RenderDetails(&out, page))
	assert.Contains(t, out.String(), "2024-01-04")
}

func TestNewLocations(t *testing.T) {
	created := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	page := view.NewLocations([]models.Location{{ID: 4, Name: "Oslo", Latitude: 59.9139, Longitude: 10.7522, CreatedAt: created}})

	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Empty)
	assert.Equal(t, "Mar 5, 2024", page.Items[0].Added)

	var out bytes.Buffer
	require.NoError(t, view.RenderLocations(&out, page))
	assert.Contains(t, out.String(), "59.9139, 10.7522")

	empty := view.NewLocations(nil)
	require.NotNil(t, empty.Empty)
}

func TestNewAddLocation(t *testing.T) {
	london := models.SearchResult{Name: "London", Country: "United Kingdom", Admin1: "England", Latitude: 51.5085, Longitude: -0.1257}
	twin := models.SearchResult{Name: "City of London", Country: "United Kingdom", Latitude: 51.5085, Longitude: -0.1257}

	page := view.NewAddLocation("Londo", []models.SearchResult{london, twin}, "", func(res models.SearchResult) bool {
		return res.Key() == london.Key()
	})

	require.Len(t, page.Results, 2)
	assert.True(t, page.Results[0].Adding)
	assert.False(t, page.Results[1].Adding)
	assert.Equal(t, "England, United Kingdom", page.Results[0].Region)

	var out bytes.Buffer
	require.NoError(t, view.RenderAddLocation(&out, view.NewAddLocation("Atlantis", nil, "", nil)))
	assert.Contains(t, out.String(), `No locations found for "Atlantis"`)
}

func TestNewProfile(t *testing.T) {
	page := view.NewProfile("demo_user", "demo@example.com", view.Fahrenheit)

	assert.Equal(t, "Fahrenheit (°F)", page.Label)

	var out bytes.Buffer
	require.NoError(t, view.RenderProfile(&out, page))
	assert.Contains(t, out.String(), "demo@example.com")
}

func TestNewHistory(t *testing.T) {
	fetchedAt := time.Date(2024, time.January, 1, 12, 30, 0, 0, time.UTC)
	snapshots := []models.WeatherSnapshot{
		{
			LocationID:   1,
			LocationName: "Paris",
			Current:      &models.CurrentConditions{Temperature: 18, WindSpeed: 5, WindDirection: 180, WeatherCode: 61},
			FetchedAt:    fetchedAt,
		},
		{LocationID: 1, LocationName: "Paris", FetchedAt: fetchedAt.Add(-time.Hour)},
	}

	page := view.NewHistory(1, snapshots, view.Fahrenheit)

	assert.Equal(t, "Paris", page.Name)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, view.HistoryRow{
		FetchedAt:   "2024-01-01 12:30:00",
		Temperature: "64°F",
		Condition:   "rain",
		Wind:        "5 km/h 180°",
	}, page.Rows[0])

	var buf bytes.Buffer
	require.NoError(t, view.RenderHistory(&buf, page))
	assert.Contains(t, buf.String(), "Paris (id 1)")
	assert.Contains(t, buf.String(), "64°F")

	buf.Reset()
	require.NoError(t, view.RenderHistory(&buf, view.NewHistory(2, nil, view.Celsius)))
	assert.Equal(t, "No archived weather for location 2\n", buf.String())
}
