package storage

import "fmt"

// migrate creates the timetable schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Debug("database migrations applied")
	return nil
}

// Rows are keyed by global id. The numeric ids of a timetable are handed out
// again on load, in rowid order, so they come back the same.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stops (
		global_id TEXT PRIMARY KEY,
		name      TEXT NOT NULL DEFAULT '',
		lat       REAL NOT NULL,
		lon       REAL NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS trips (
		global_id TEXT PRIMARY KEY,
		name      TEXT NOT NULL DEFAULT ''
	)`,

	// Times include the delays, like transit.Connection.
	`CREATE TABLE IF NOT EXISTS connections (
		global_id       TEXT PRIMARY KEY,
		trip_id         TEXT NOT NULL REFERENCES trips(global_id),
		departure_stop  TEXT NOT NULL REFERENCES stops(global_id),
		arrival_stop    TEXT NOT NULL REFERENCES stops(global_id),
		departure_time  INTEGER NOT NULL,
		travel_time     INTEGER NOT NULL,
		departure_delay INTEGER NOT NULL DEFAULT 0,
		arrival_delay   INTEGER NOT NULL DEFAULT 0,
		mode            INTEGER NOT NULL DEFAULT 0
	)`,

	// Feed metadata (saved_at, realtime_timestamp, etc.)
	`CREATE TABLE IF NOT EXISTS feed_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_connections_departure ON connections(departure_time)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_trip ON connections(trip_id)`,
}
