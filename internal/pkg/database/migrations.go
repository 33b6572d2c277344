package database

import (
	"context"
	"fmt"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		employee_code VARCHAR(50) NOT NULL UNIQUE,
		full_name VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL DEFAULT 'WORKER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS sites (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		radius_meters INTEGER NOT NULL DEFAULT 300,
		work_start VARCHAR(5),
		work_end VARCHAR(5),
		max_overtime_minutes INTEGER NOT NULL DEFAULT 120,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS shift_segments (
		id UUID PRIMARY KEY,
		worker_id UUID NOT NULL REFERENCES users(id),
		site_id UUID NOT NULL REFERENCES sites(id),
		check_in_at TIMESTAMPTZ NOT NULL,
		check_out_at TIMESTAMPTZ,
		geofence_latitude DOUBLE PRECISION NOT NULL,
		geofence_longitude DOUBLE PRECISION NOT NULL,
		geofence_radius_meters DOUBLE PRECISION NOT NULL,
		gps_lost BOOLEAN NOT NULL DEFAULT FALSE,
		last_ping_at TIMESTAMPTZ,
		self_declared BOOLEAN NOT NULL DEFAULT FALSE,
		audit_note TEXT,
		check_in_latitude DOUBLE PRECISION,
		check_in_longitude DOUBLE PRECISION,
		check_out_latitude DOUBLE PRECISION,
		check_out_longitude DOUBLE PRECISION,
		overtime_minutes INTEGER NOT NULL DEFAULT 0,
		overtime_approved BOOLEAN NOT NULL DEFAULT FALSE,
		overtime_approved_by UUID REFERENCES users(id),
		overtime_approved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_segment_order CHECK (check_out_at IS NULL OR check_out_at >= check_in_at)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_shift_segments_open_worker ON shift_segments (worker_id) WHERE check_out_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_shift_segments_check_in ON shift_segments (check_in_at);`,
	`CREATE TABLE IF NOT EXISTS shift_intervals (
		id UUID PRIMARY KEY,
		segment_id UUID NOT NULL REFERENCES shift_segments(id) ON DELETE CASCADE,
		kind VARCHAR(16) NOT NULL CHECK (kind IN ('BREAK', 'GEOFENCE_PAUSE')),
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ,
		distance_meters DOUBLE PRECISION,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_interval_order CHECK (end_at IS NULL OR end_at >= start_at)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_shift_intervals_segment ON shift_intervals (segment_id, kind, start_at);`,
	`CREATE TABLE IF NOT EXISTS shift_activities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		segment_id UUID NOT NULL REFERENCES shift_segments(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		quantity NUMERIC(12,3) NOT NULL,
		unit_type VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_shift_activities_segment ON shift_activities (segment_id);`,
}

// Migrate applies the schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrationStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
