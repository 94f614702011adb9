package store

import "context"

// EnsureSchema auto-creates the mission tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS missions (
			mission_id SERIAL PRIMARY KEY,
			mission_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Inactive',
			keep_in_zones TEXT[] NOT NULL DEFAULT '{}',
			keep_out_zones TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS vehicles (
			vehicle_id SERIAL PRIMARY KEY,
			mission_id INTEGER NOT NULL REFERENCES missions(mission_id),
			vehicle_name TEXT NOT NULL,
			current_stage_id INTEGER NOT NULL DEFAULT -1,
			is_auto BOOLEAN NOT NULL DEFAULT false,
			patient_status TEXT NOT NULL DEFAULT 'Unsecured'
		)`,
		`CREATE TABLE IF NOT EXISTS stages (
			stage_id SERIAL PRIMARY KEY,
			vehicle_id INTEGER NOT NULL REFERENCES vehicles(vehicle_id),
			stage_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Inactive',
			search_area TEXT[] NOT NULL DEFAULT '{}'
		)`,
	}
	for _, stmt := range ddl {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
