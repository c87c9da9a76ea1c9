package models

import "time"

// CurrentConditions is the instantaneous reading of a weather snapshot.
type CurrentConditions struct {
	Temperature   float64   `json:"temperature"`    // Celsius
	WindSpeed     float64   `json:"wind_speed"`     // km/h
	WindDirection float64   `json:"wind_direction"` // degrees
	WeatherCode   int       `json:"weather_code"`   // WMO weather interpretation code
	Time          time.Time `json:"time"`
}

// DailyForecast is one day of a multi-day forecast.
type DailyForecast struct {
	Date          time.Time `json:"date"`
	TempMax       float64   `json:"temp_max"`
	TempMin       float64   `json:"temp_min"`
	Precipitation *float64  `json:"precipitation,omitempty"` // mm, when reported
}

// WeatherSnapshot is the most recently fetched weather for one location.
// It has no expiry and is only ever replaced by a fresh fetch.
type WeatherSnapshot struct {
	LocationID   int64              `json:"location_id"`
	LocationName string             `json:"location_name"`
	Current      *CurrentConditions `json:"current,omitempty"`
	Daily        []DailyForecast    `json:"daily,omitempty"` // ordered by date
	FetchedAt    time.Time          `json:"fetched_at"`
}

// Condition maps the WMO weather code of the current reading to a short label.
func (c CurrentConditions) Condition() string {
	code := c.WeatherCode
	switch {
	case code == 0:
		return "clear"
	case code >= 1 && code <= 3:
		return "cloudy"
	case code == 45 || code == 48:
		return "mist"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "storm"
	default:
		return "unknown"
	}
}
