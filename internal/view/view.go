package view

import (
	"fmt"
	"time"

	"github.com/UnknownOlympus/stratus/internal/dashboard"
	"github.com/UnknownOlympus/stratus/internal/models"
	"github.com/UnknownOlympus/stratus/internal/routes"
)

// DashboardForecastDays is the number of forecast rows on a dashboard card.
const DashboardForecastDays = 3

// Placeholder texts.
const (
	LoadingText      = "Loading weather..."
	EmptyTitle       = "No Locations Yet"
	EmptyText        = "Start monitoring weather by adding your first location. Track weather across cities worldwide!"
	EmptyAction      = "Add Your First Location"
	LoadFailedText   = "Could not load your locations"
	WeatherFailedFmt = "Weather unavailable: %s"
)

// DayRow is one line of a forecast.
type DayRow struct {
	Date          string `json:"date"`
	Day           string `json:"day"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Precipitation string `json:"precipitation,omitempty"`
}

// String renders the row as "Mon 20° / 12°".
func (r DayRow) String() string {
	return fmt.Sprintf("%s %s / %s", r.Day, r.High, r.Low)
}

// Card is the dashboard tile of one location.
type Card struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Temperature string   `json:"temperature,omitempty"`
	FeelsLike   string   `json:"feels_like,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Forecast    []DayRow `json:"forecast,omitempty"`
	Message     string   `json:"message,omitempty"`
	Stale       bool     `json:"stale,omitempty"` // readings predate the failed refresh
	DetailsURL  string   `json:"details_url"`
}

// EmptyState is shown instead of cards when no location is saved.
type EmptyState struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	Action    string `json:"action"`
	ActionURL string `json:"action_url"`
}

// Dashboard is the view model of the dashboard page.
type Dashboard struct {
	State   string      `json:"state"`
	Message string      `json:"message,omitempty"`
	Empty   *EmptyState `json:"empty,omitempty"`
	Cards   []Card      `json:"cards"`
	AddURL  string      `json:"add_url"`
}

// NewDashboard builds the dashboard page from a session state.
func NewDashboard(state dashboard.State, unit Unit) Dashboard {
	page := Dashboard{
		State:  state.Phase.String(),
		Cards:  make([]Card, 0, len(state.Cards)),
		AddURL: routes.PageURL(routes.AddLocation),
	}

	switch state.Phase {
	case dashboard.PhaseEmpty:
		page.Empty = &EmptyState{
			Title:     EmptyTitle,
			Text:      EmptyText,
			Action:    EmptyAction,
			ActionURL: routes.PageURL(routes.AddLocation),
		}
	case dashboard.PhaseFailed:
		page.Message = fmt.Sprintf("%s: %s", LoadFailedText, state.Reason)
	case dashboard.PhaseLoading, dashboard.PhasePopulated:
	}

	for _, card := range state.Cards {
		page.Cards = append(page.Cards, NewCard(card, unit, DashboardForecastDays))
	}

	return page
}

// NewCard builds the tile of one location, showing at most days forecast rows.
// A negative days shows the whole forecast.
func NewCard(card dashboard.Card, unit Unit, days int) Card {
	out := Card{
		ID:         card.Location.ID,
		Name:       card.Location.Name,
		Status:     card.Entry.Status.String(),
		DetailsURL: routes.WeatherDetailsURL(card.Location.ID),
	}

	switch card.Entry.Status {
	case dashboard.StatusPending:
		out.Message = LoadingText
		return out
	case dashboard.StatusFailed:
		// The last good reading, if any, stays visible under the failure note.
		out.Message = fmt.Sprintf(WeatherFailedFmt, card.Entry.Reason)
		out.Stale = card.Entry.Snapshot != nil
	case dashboard.StatusReady:
	}

	snapshot := card.Entry.Snapshot
	if snapshot == nil {
		return out
	}

	if current := snapshot.Current; current != nil {
		out.Temperature = Temperature(current.Temperature, unit)
		out.FeelsLike = "Feels like " + Temperature(current.Temperature, unit)
		out.Condition = current.Condition()
	}

	out.Forecast = Forecast(snapshot.Daily, unit, days)

	return out
}

// Forecast formats up to days forecast rows; a negative days formats all of them.
func Forecast(daily []models.DailyForecast, unit Unit, days int) []DayRow {
	if days >= 0 && len(daily) > days {
		daily = daily[:days]
	}

	rows := make([]DayRow, 0, len(daily))
	for _, day := range daily {
		row := DayRow{
			Date: day.Date.Format(time.DateOnly),
			Day:  day.Date.Format("Mon"),
			High: Degrees(day.TempMax, unit),
			Low:  Degrees(day.TempMin, unit),
		}
		if day.Precipitation != nil {
			row.Precipitation = fmt.Sprintf("%.1f mm", *day.Precipitation)
		}
		rows = append(rows, row)
	}

	return rows
}

// Details is the view model of the weather-details page.
type Details struct {
	Card
	Coordinates string `json:"coordinates"`
	BackURL     string `json:"back_url"`
}

// NewDetails builds the weather-details page of one location with its full forecast.
func NewDetails(card dashboard.Card, unit Unit) Details {
	return Details{
		Card:        NewCard(card, unit, -1),
		Coordinates: card.Location.Coordinates().String(),
		BackURL:     routes.PageURL(routes.Dashboard),
	}
}

// LocationItem is one row of the locations page.
type LocationItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Coordinates string `json:"coordinates"`
	Added       string `json:"added,omitempty"`
	DetailsURL  string `json:"details_url"`
}

// Locations is the view model of the locations page.
type Locations struct {
	Items  []LocationItem `json:"items"`
	Empty  *EmptyState    `json:"empty,omitempty"`
	AddURL string         `json:"add_url"`
}

// NewLocations builds the locations page.
func NewLocations(locations []models.Location) Locations {
	page := Locations{
		Items:  make([]LocationItem, 0, len(locations)),
		AddURL: routes.PageURL(routes.AddLocation),
	}

	if len(locations) == 0 {
		page.Empty = &EmptyState{
			Title:     EmptyTitle,
			Text:      EmptyText,
			Action:    EmptyAction,
			ActionURL: routes.PageURL(routes.AddLocation),
		}
	}

	for _, loc := range locations {
		item := LocationItem{
			ID:          loc.ID,
			Name:        loc.Name,
			Coordinates: loc.Coordinates().String(),
			DetailsURL:  routes.WeatherDetailsURL(loc.ID),
		}
		if !loc.CreatedAt.IsZero() {
			item.Added = loc.CreatedAt.Format("Jan 2, 2006")
		}
		page.Items = append(page.Items, item)
	}

	return page
}

// Result is one search candidate on the add-location page.
type Result struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Region      string  `json:"region,omitempty"`
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Coordinates string  `json:"coordinates"`
	Adding      bool    `json:"adding"`
}

// AddLocation is the view model of the add-location page.
type AddLocation struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Alert   string   `json:"alert,omitempty"`
}

// NewAddLocation builds the add-location page. adding reports the candidates being saved.
func NewAddLocation(query string, results []models.SearchResult, alert string,
	adding func(models.SearchResult) bool,
) AddLocation {
	page := AddLocation{Query: query, Alert: alert, Results: make([]Result, 0, len(results))}

	for _, res := range results {
		page.Results = append(page.Results, Result{
			Key:         res.Key(),
			Name:        res.Name,
			Region:      res.Region(),
			DisplayName: res.DisplayName,
			Latitude:    res.Latitude,
			Longitude:   res.Longitude,
			Coordinates: res.Coordinates().String(),
			Adding:      adding != nil && adding(res),
		})
	}

	return page
}

// Profile is the view model of the profile page.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Unit     string `json:"unit"`
	Label    string `json:"unit_label"`
}

// NewProfile builds the profile page.
func NewProfile(username, email string, unit Unit) Profile {
	return Profile{Username: username, Email: email, Unit: string(unit), Label: unit.Label()}
}

// HistoryRow is one archived reading.
type HistoryRow struct {
	FetchedAt   string `json:"fetched_at"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	Wind        string `json:"wind"`
}

// History is the view model of the archived readings of a location.
type History struct {
	LocationID int64        `json:"location_id"`
	Name       string       `json:"name"`
	Rows       []HistoryRow `json:"rows"`
}

// NewHistory builds the history page from archived snapshots, newest first.
func NewHistory(locationID int64, snapshots []models.WeatherSnapshot, unit Unit) History {
	page := History{LocationID: locationID, Rows: make([]HistoryRow, 0, len(snapshots))}

	for _, snapshot := range snapshots {
		if page.Name == "" {
			page.Name = snapshot.LocationName
		}
		if snapshot.Current == nil {
			continue
		}
		page.Rows = append(page.Rows, HistoryRow{
			FetchedAt:   snapshot.FetchedAt.Format(time.DateTime),
			Temperature: Temperature(snapshot.Current.Temperature, unit),
			Condition:   snapshot.Current.Condition(),
			Wind:        fmt.Sprintf("%.0f km/h %.0f°", snapshot.Current.WindSpeed, snapshot.Current.WindDirection),
		})
	}

	return page
}
