package app

import (
	"context"
	"database/sql"
	"fmt"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(128) NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS drivers (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) REFERENCES users(id),
		name VARCHAR(128),
		assigned_car_id VARCHAR(64),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS cars (
		id VARCHAR(64) PRIMARY KEY,
		car_number VARCHAR(32),
		car_model VARCHAR(64),
		status VARCHAR(16) NOT NULL DEFAULT 'IDLE',
		driver_id VARCHAR(64) REFERENCES drivers(id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cars_status ON cars (status) WHERE is_active;`,
	`CREATE TABLE IF NOT EXISTS trip_costs (
		id VARCHAR(64) PRIMARY KEY,
		start_point VARCHAR(128) NOT NULL,
		end_point VARCHAR(128) NOT NULL,
		base_cost NUMERIC NOT NULL CHECK (base_cost > 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_update_on TIMESTAMPTZ,
		CONSTRAINT uk_trip_cost_start_end UNIQUE (start_point, end_point)
	);`,
	`CREATE TABLE IF NOT EXISTS trips (
		id VARCHAR(64) PRIMARY KEY,
		driver_id VARCHAR(64) NOT NULL REFERENCES drivers(id),
		vehicle_id VARCHAR(64) REFERENCES cars(id),
		start_point VARCHAR(128) NOT NULL,
		end_point VARCHAR(128) NOT NULL,
		status VARCHAR(16) NOT NULL,
		requested_at TIMESTAMPTZ,
		approved_at TIMESTAMPTZ,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		base_cost NUMERIC NOT NULL DEFAULT 0,
		additional_fine NUMERIC NOT NULL DEFAULT 0 CHECK (additional_fine >= 0),
		total_cost NUMERIC NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_trip_total CHECK (total_cost = base_cost + additional_fine)
	);`,
	// Fines are unbounded; widen money columns created with a fixed precision.
	`ALTER TABLE trip_costs ALTER COLUMN base_cost TYPE NUMERIC;`,
	`ALTER TABLE trips
		ALTER COLUMN base_cost TYPE NUMERIC,
		ALTER COLUMN additional_fine TYPE NUMERIC,
		ALTER COLUMN total_cost TYPE NUMERIC;`,
	`CREATE INDEX IF NOT EXISTS idx_trips_driver_id ON trips (driver_id);`,
	`CREATE INDEX IF NOT EXISTS idx_trips_status ON trips (status);`,
	`CREATE INDEX IF NOT EXISTS idx_trips_vehicle_active ON trips (vehicle_id) WHERE status = 'ACTIVE';`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrationStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
