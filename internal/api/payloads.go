package api

import (
	"strings"
	"time"

	"github.com/UnknownOlympus/stratus/internal/models"
)

// Timestamps from the backend come with or without a zone and fractional seconds.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

type locationPayload struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	CreatedAt string  `json:"created_at"`
}

func (p locationPayload) toModel() models.Location {
	createdAt, _ := parseTime(p.CreatedAt)
	return models.Location{
		ID:        p.ID,
		Name:      p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		CreatedAt: createdAt,
	}
}

type listPayload struct {
	Locations []locationPayload `json:"locations"`
}

type searchPayload struct {
	Results []struct {
		Name        string  `json:"name"`
		Country     string  `json:"country"`
		Admin1      string  `json:"admin1"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		DisplayName string  `json:"display_name"`
	} `json:"results"`
}

func (p searchPayload) toModels() []models.SearchResult {
	results := make([]models.SearchResult, 0, len(p.Results))
	for _, r := range p.Results {
		display := r.DisplayName
		if display == "" {
			display = models.ComposeDisplayName(r.Name, r.Admin1, r.Country)
		}
		results = append(results, models.SearchResult{
			Name:        r.Name,
			Country:     r.Country,
			Admin1:      r.Admin1,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			DisplayName: display,
		})
	}
	return results
}

// weatherPayload mirrors the Open-Meteo shaped document served by the backend.
type weatherPayload struct {
	Location       string `json:"location"`
	CurrentWeather *struct {
		Temperature   float64 `json:"temperature"`
		WindSpeed     float64 `json:"windspeed"`
		WindDirection float64 `json:"winddirection"`
		WeatherCode   int     `json:"weathercode"`
		Time          string  `json:"time"`
	} `json:"current_weather"`
	DailyForecast *struct {
		Time             []string   `json:"time"`
		TempMax          []*float64 `json:"temperature_2m_max"`
		TempMin          []*float64 `json:"temperature_2m_min"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily_forecast"`
}

func (p weatherPayload) toModel(locationID int64, fetchedAt time.Time) models.WeatherSnapshot {
	snapshot := models.WeatherSnapshot{
		LocationID:   locationID,
		LocationName: p.Location,
		FetchedAt:    fetchedAt,
	}

	if cw := p.CurrentWeather; cw != nil {
		observed, ok := parseTime(cw.Time)
		if !ok {
			observed = fetchedAt
		}
		snapshot.Current = &models.CurrentConditions{
			Temperature:   cw.Temperature,
			WindSpeed:     cw.WindSpeed,
			WindDirection: cw.WindDirection,
			WeatherCode:   cw.WeatherCode,
			Time:          observed,
		}
	}

	if df := p.DailyForecast; df != nil {
		snapshot.Daily = make([]models.DailyForecast, 0, len(df.Time))
		for i, day := range df.Time {
			date, ok := parseTime(day)
			maxTemp, minTemp := at(df.TempMax, i), at(df.TempMin, i)
			// Days without a parsable date or without both extremes are not forecasts.
			if !ok || maxTemp == nil || minTemp == nil {
				continue
			}
			snapshot.Daily = append(snapshot.Daily, models.DailyForecast{
				Date:          date,
				TempMax:       *maxTemp,
				TempMin:       *minTemp,
				Precipitation: at(df.PrecipitationSum, i),
			})
		}
	}

	return snapshot
}

func at(values []*float64, idx int) *float64 {
	if idx < len(values) {
		return values[idx]
	}
	return nil
}
