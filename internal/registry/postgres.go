// Package registry reads the downstream pipeline's record of processed
// videos. The scanner only filters against it; nothing here mutates it.
package registry

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool for registry reads.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres reads processed video IDs from the pipeline's table.
type Postgres struct {
	pool  rowQuerier
	table string
}

// NewPostgres connects a registry to the configured database.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("registry.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse registry dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect registry: %w", err)
	}
	return NewPostgresWithPool(pool, cfg.Table)
}

// NewPostgresWithPool constructs a registry from an existing pool
// (primarily for testing).
func NewPostgresWithPool(pool rowQuerier, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "meeting_videos"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Contains reports whether the pipeline has fully processed the video.
func (r *Postgres) Contains(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM %s WHERE video_id = $1)", r.table)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("query processed id %d: %w", id, err)
	}
	return exists, nil
}

// HighestOwned returns the largest processed video ID, or 0 when none.
func (r *Postgres) HighestOwned(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COALESCE(MAX(video_id), 0) FROM %s", r.table)
	var highest int64
	if err := r.pool.QueryRow(ctx, query).Scan(&highest); err != nil {
		return 0, fmt.Errorf("query highest processed id: %w", err)
	}
	return highest, nil
}

// Close releases the pool.
func (r *Postgres) Close() {
	r.pool.Close()
}
