// Package db provides database connection helpers and the listing store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The service issues one lookup at a time per cycle plus browse queries.
const (
	poolMaxConns = 4
	pingTimeout  = 5 * time.Second
)

// NewPostgresPool opens a small pool tagged with the service name and fails
// unless the database answers a ping.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = poolMaxConns
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.RuntimeParams["application_name"] = "discovery-service"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// schema mirrors the job board's listings table. The unique index on
// external_link is what makes concurrent ingestion runs safe; local listings
// keep external_link NULL and are not constrained by it.
const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id             BIGSERIAL    PRIMARY KEY,
	title          VARCHAR(200) NOT NULL,
	description    TEXT         NOT NULL,
	category       VARCHAR(200),
	city           VARCHAR(100),
	work_schedule  VARCHAR(50),
	listing_kind   VARCHAR(50),
	is_external    BOOLEAN      NOT NULL DEFAULT FALSE,
	external_link  VARCHAR(500),
	external_image VARCHAR(500),
	owner_id       BIGINT,
	created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	CONSTRAINT listings_external_link_chk CHECK (
		(is_external AND external_link IS NOT NULL) OR (NOT is_external AND external_link IS NULL)
	)
);

CREATE UNIQUE INDEX IF NOT EXISTS listings_external_link_uidx ON listings (external_link);
CREATE INDEX IF NOT EXISTS listings_created_at_idx ON listings (created_at DESC);
`

// EnsureSchema creates the listings table and its indexes if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
