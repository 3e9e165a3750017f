// Package postgres is the PostgreSQL TripStore for the reference
// backend, used when durable trips are wanted during development.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"

	"ridesync/internal/config"
)

// schema creates the trips table. The reference backend applies it at
// startup; there is no migration history to manage for a dev store.
const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id                  TEXT PRIMARY KEY,
	passenger_id        TEXT NOT NULL,
	driver_id           TEXT NOT NULL DEFAULT '',
	origin_address      TEXT NOT NULL,
	origin_lat          DOUBLE PRECISION NOT NULL,
	origin_lng          DOUBLE PRECISION NOT NULL,
	destination_address TEXT NOT NULL,
	destination_lat     DOUBLE PRECISION NOT NULL,
	destination_lng     DOUBLE PRECISION NOT NULL,
	status              TEXT NOT NULL,
	fare                DOUBLE PRECISION NOT NULL DEFAULT 0,
	distance            DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration            DOUBLE PRECISION NOT NULL DEFAULT 0,
	payment_method      TEXT NOT NULL,
	payment_status      TEXT NOT NULL,
	passenger_rating    INTEGER,
	driver_rating       INTEGER,
	comment             TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trips_passenger ON trips (passenger_id, created_at);
`

// NewDatabase opens a PostgreSQL connection, applying the schema. When
// nrApp is provided the New Relic instrumented driver traces every query.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	driver := "postgres"
	if nrApp != nil {
		// Registered by the nrpq import.
		driver = "nrpostgres"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
