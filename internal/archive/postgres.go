package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/stratus/internal/models"
	"github.com/jackc/pgx/v5"
)

const schemaQuery = `
	CREATE TABLE IF NOT EXISTS weather_snapshots (
		id             BIGSERIAL PRIMARY KEY,
		location_id    BIGINT           NOT NULL,
		location_name  TEXT             NOT NULL DEFAULT '',
		temperature    DOUBLE PRECISION NOT NULL,
		wind_speed     DOUBLE PRECISION NOT NULL DEFAULT 0,
		wind_direction DOUBLE PRECISION NOT NULL DEFAULT 0,
		weather_code   INTEGER          NOT NULL DEFAULT 0,
		observed_at    TIMESTAMPTZ,
		fetched_at     TIMESTAMPTZ      NOT NULL
	);
	CREATE INDEX IF NOT EXISTS weather_snapshots_location_idx
		ON weather_snapshots (location_id, fetched_at DESC);
	CREATE TABLE IF NOT EXISTS daily_forecasts (
		location_id   BIGINT           NOT NULL,
		date          DATE             NOT NULL,
		temp_max      DOUBLE PRECISION NOT NULL,
		temp_min      DOUBLE PRECISION NOT NULL,
		precipitation DOUBLE PRECISION,
		updated_at    TIMESTAMPTZ      NOT NULL,
		PRIMARY KEY (location_id, date)
	);
`

const insertSnapshotQuery = `
	INSERT INTO weather_snapshots
		(location_id, location_name, temperature, wind_speed, wind_direction, weather_code, observed_at, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

const upsertForecastQuery = `
	INSERT INTO daily_forecasts (location_id, date, temp_max, temp_min, precipitation, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (location_id, date) DO UPDATE
	SET
		temp_max = EXCLUDED.temp_max,
		temp_min = EXCLUDED.temp_min,
		precipitation = EXCLUDED.precipitation,
		updated_at = EXCLUDED.updated_at;
`

const historyQuery = `
	SELECT location_name, temperature, wind_speed, wind_direction, weather_code, fetched_at
	FROM weather_snapshots
	WHERE location_id = $1
	ORDER BY fetched_at DESC
	LIMIT $2;
`

// EnsureSchema creates the archive tables when they do not exist yet.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schemaQuery); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}

	return nil
}

// Save stores one snapshot: its current reading as a new row, and its daily forecast
// upserted per (location, date) so the latest forecast for a day wins. Everything is
// written in one transaction.
func (a *Archive) Save(ctx context.Context, snapshot *models.WeatherSnapshot) error {
	if snapshot == nil || (snapshot.Current == nil && len(snapshot.Daily) == 0) {
		return nil
	}

	fetchedAt := snapshot.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}

	if err = a.save(ctx, tx, snapshot, fetchedAt); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			a.log.ErrorContext(ctx, "Failed to roll back archive transaction", "error", rbErr)
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	a.metrics.ArchivedRows.Inc()
	a.log.DebugContext(ctx, "Weather snapshot archived",
		"location", snapshot.LocationID, "days", len(snapshot.Daily))

	return nil
}

func (a *Archive) save(ctx context.Context, tx pgx.Tx, snapshot *models.WeatherSnapshot, fetchedAt time.Time) error {
	if cur := snapshot.Current; cur != nil {
		var observedAt *time.Time
		if !cur.Time.IsZero() {
			observedAt = &cur.Time
		}

		_, err := tx.Exec(ctx, insertSnapshotQuery,
			snapshot.LocationID, snapshot.LocationName, cur.Temperature,
			cur.WindSpeed, cur.WindDirection, cur.WeatherCode, observedAt, fetchedAt)
		if err != nil {
			return fmt.Errorf("failed to insert weather snapshot: %w", err)
		}
	}

	for _, day := range snapshot.Daily {
		_, err := tx.Exec(ctx, upsertForecastQuery,
			snapshot.LocationID, day.Date, day.TempMax, day.TempMin, day.Precipitation, fetchedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert daily forecast for %s: %w", day.Date.Format(time.DateOnly), err)
		}
	}

	return nil
}

// History returns the archived current readings of a location, newest first.
func (a *Archive) History(ctx context.Context, locationID int64, limit int) ([]models.WeatherSnapshot, error) {
	rows, err := a.db.Query(ctx, historyQuery, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather history: %w", err)
	}
	defer rows.Close()

	var history []models.WeatherSnapshot
	for rows.Next() {
		snapshot := models.WeatherSnapshot{LocationID: locationID, Current: &models.CurrentConditions{}}
		if errScan := rows.Scan(
			&snapshot.LocationName,
			&snapshot.Current.Temperature,
			&snapshot.Current.WindSpeed,
			&snapshot.Current.WindDirection,
			&snapshot.Current.WeatherCode,
			&snapshot.FetchedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan weather history: %w", errScan)
		}
		history = append(history, snapshot)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return history, nil
}
