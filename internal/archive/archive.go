package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/stratus/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of a pgx pool used by the archive.
type Database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Archive keeps the history of fetched weather snapshots in PostgreSQL.
type Archive struct {
	db      Database
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a new instance of Archive with the provided Database.
func New(db Database, log *slog.Logger, metrics *metrics.Metrics) *Archive {
	return &Archive{db: db, log: log, metrics: metrics}
}

// NewDatabase opens a connection pool for dsn and checks that the server answers.
func NewDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Ping reports whether the archive database is reachable.
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}
