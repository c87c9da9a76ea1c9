package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func newTable(w io.Writer) *tabwriter.Writer {
	const (
		minWidth = 0
		tabWidth = 4
		padding  = 2
	)
	return tabwriter.NewWriter(w, minWidth, tabWidth, padding, ' ', 0)
}

// RenderDashboard writes the dashboard as plain text.
func RenderDashboard(w io.Writer, page Dashboard) error {
	switch {
	case page.Empty != nil:
		_, err := fmt.Fprintf(w, "%s\n%s\n-> %s (%s)\n", page.Empty.Title, page.Empty.Text,
			page.Empty.Action, page.Empty.ActionURL)
		return err
	case page.Message != "":
		_, err := fmt.Fprintln(w, page.Message)
		return err
	case page.State == "loading":
		_, err := fmt.Fprintln(w, LoadingText)
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tLOCATION\tNOW\tFEELS LIKE\tFORECAST")
	for _, card := range page.Cards {
		now, feels := orDash(card.Temperature), orDash(card.FeelsLike)
		forecast := joinRows(card.Forecast)
		switch {
		case card.Message != "" && forecast != "":
			forecast = card.Message + " (last known: " + forecast + ")"
		case card.Message != "":
			forecast = card.Message
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", card.ID, card.Name, now, feels, forecast)
	}

	return tw.Flush()
}

// RenderDetails writes the weather-details page as plain text.
func RenderDetails(w io.Writer, page Details) error {
	fmt.Fprintf(w, "%s (%s)\n", page.Name, page.Coordinates)
	if page.Message != "" {
		if _, err := fmt.Fprintln(w, page.Message); err != nil || !page.Stale {
			return err
		}
	}
	if page.Temperature != "" {
		fmt.Fprintf(w, "%s, %s, %s\n", page.Temperature, page.FeelsLike, page.Condition)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tDAY\tHIGH\tLOW\tPRECIPITATION")
	for _, row := range page.Forecast {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Date, row.Day, row.High, row.Low, row.Precipitation)
	}

	return tw.Flush()
}

// RenderLocations writes the locations page as plain text.
func RenderLocations(w io.Writer, page Locations) error {
	if page.Empty != nil {
		_, err := fmt.Fprintf(w, "%s\n-> %s (%s)\n", page.Empty.Title, page.Empty.Action, page.Empty.ActionURL)
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCOORDINATES\tADDED")
	for _, item := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", item.ID, item.Name, item.Coordinates, item.Added)
	}

	return tw.Flush()
}

// RenderAddLocation writes search results as plain text.
func RenderAddLocation(w io.Writer, page AddLocation) error {
	if page.Alert != "" {
		fmt.Fprintf(w, "error: %s\n", page.Alert)
	}
	if len(page.Results) == 0 {
		_, err := fmt.Fprintf(w, "No locations found for %q\n", page.Query)
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tNAME\tREGION\tCOORDINATES")
	for idx, res := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", idx+1, res.Name, res.Region, res.Coordinates)
	}

	return tw.Flush()
}

// RenderProfile writes the profile page as plain text.
func RenderProfile(w io.Writer, page Profile) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Username\t%s\n", page.Username)
	fmt.Fprintf(tw, "Email\t%s\n", page.Email)
	fmt.Fprintf(tw, "Temperature unit\t%s\n", page.Label)

	return tw.Flush()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func joinRows(rows []DayRow) string {
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, row.String())
	}
	return strings.Join(parts, ", ")
}

// RenderHistory writes the archived readings of a location as plain text.
func RenderHistory(w io.Writer, page History) error {
	if len(page.Rows) == 0 {
		_, err := fmt.Fprintf(w, "No archived weather for location %d\n", page.LocationID)
		return err
	}

	fmt.Fprintf(w, "%s (id %d)\n", page.Name, page.LocationID)
	tw := newTable(w)
	fmt.Fprintln(tw, "FETCHED\tTEMPERATURE\tCONDITION\tWIND")
	for _, row := range page.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.FetchedAt, row.Temperature, row.Condition, row.Wind)
	}

	return tw.Flush()
}
