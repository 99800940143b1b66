package storage

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

// GetMetadata retrieves a value from the feed_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM feed_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// LoadStats counts what LoadInto added to a writer.
type LoadStats struct {
	Stops       int
	Trips       int
	Connections int
}

// SaveSnapshot replaces the stored timetable with the contents of s.
// The entire operation runs in a single transaction.
func (db *DB) SaveSnapshot(ctx context.Context, s *timetable.Snapshot) error {
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range []string{"connections", "trips", "stops"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}

	if err := saveStops(ctx, tx, s.Stops()); err != nil {
		return err
	}
	if err := saveTrips(ctx, tx, s.Trips()); err != nil {
		return err
	}
	if err := saveConnections(ctx, tx, s); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES ('saved_at', ?)`, now); err != nil {
		return fmt.Errorf("set saved_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info("timetable saved",
		"duration", time.Since(start).Round(time.Millisecond),
		"stops", len(s.Stops()),
		"trips", len(s.Trips()),
		"connections", len(s.Connections()),
	)
	return nil
}

func saveStops(ctx context.Context, tx *sql.Tx, stops []transit.Stop) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stops (global_id, name, lat, lon) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stops: %w", err)
	}
	defer stmt.Close()

	for _, st := range stops {
		if _, err := stmt.ExecContext(ctx, st.GlobalID, st.Name, st.Latitude, st.Longitude); err != nil {
			return fmt.Errorf("insert stop %s: %w", st.GlobalID, err)
		}
	}
	return nil
}

func saveTrips(ctx context.Context, tx *sql.Tx, trips []timetable.Trip) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trips (global_id, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trips: %w", err)
	}
	defer stmt.Close()

	for _, t := range trips {
		if _, err := stmt.ExecContext(ctx, t.GlobalID, t.Name); err != nil {
			return fmt.Errorf("insert trip %s: %w", t.GlobalID, err)
		}
	}
	return nil
}

func saveConnections(ctx context.Context, tx *sql.Tx, s *timetable.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connections (global_id, trip_id, departure_stop, arrival_stop,
		                         departure_time, travel_time, departure_delay, arrival_delay, mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare connections: %w", err)
	}
	defer stmt.Close()

	// Insert by local id so the ids survive a reload.
	conns := slices.Clone(s.Connections())
	slices.SortFunc(conns, func(a, b transit.Connection) int {
		return cmp.Compare(a.ID.LocalID, b.ID.LocalID)
	})

	for _, c := range conns {
		trip, ok := s.Trip(c.Trip)
		if !ok {
			return fmt.Errorf("connection %s: unknown trip %v", c.GlobalID, c.Trip)
		}
		dep, err := s.Stop(c.DepartureStop)
		if err != nil {
			return fmt.Errorf("connection %s: %w", c.GlobalID, err)
		}
		arr, err := s.Stop(c.ArrivalStop)
		if err != nil {
			return fmt.Errorf("connection %s: %w", c.GlobalID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.GlobalID, trip.GlobalID, dep.GlobalID, arr.GlobalID,
			int64(c.DepartureTime), c.TravelTime, c.DepartureDelay, c.ArrivalDelay, c.Mode,
		); err != nil {
			return fmt.Errorf("insert connection %s: %w", c.GlobalID, err)
		}
	}
	return nil
}

// LoadInto adds every stored stop, trip and connection to w. Rows are read
// in insertion order.
func (db *DB) LoadInto(ctx context.Context, w *timetable.Writer) (LoadStats, error) {
	var stats LoadStats

	rows, err := db.QueryContext(ctx, `SELECT global_id, name, lat, lon FROM stops ORDER BY rowid`)
	if err != nil {
		return stats, fmt.Errorf("stops query: %w", err)
	}
	for rows.Next() {
		var globalID, name string
		var lat, lon float64
		if err := rows.Scan(&globalID, &name, &lat, &lon); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan stop: %w", err)
		}
		w.AddOrUpdateStop(globalID, name, lat, lon)
		stats.Stops++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = db.QueryContext(ctx, `SELECT global_id, name FROM trips ORDER BY rowid`)
	if err != nil {
		return stats, fmt.Errorf("trips query: %w", err)
	}
	for rows.Next() {
		var globalID, name string
		if err := rows.Scan(&globalID, &name); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan trip: %w", err)
		}
		w.AddOrUpdateTrip(globalID, name)
		stats.Trips++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = db.QueryContext(ctx, `
		SELECT global_id, trip_id, departure_stop, arrival_stop,
		       departure_time, travel_time, departure_delay, arrival_delay, mode
		FROM connections
		ORDER BY rowid`)
	if err != nil {
		return stats, fmt.Errorf("connections query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c transit.Connection
		var tripID, depStop, arrStop string
		var depTime int64
		if err := rows.Scan(&c.GlobalID, &tripID, &depStop, &arrStop,
			&depTime, &c.TravelTime, &c.DepartureDelay, &c.ArrivalDelay, &c.Mode); err != nil {
			return stats, fmt.Errorf("scan connection: %w", err)
		}
		c.DepartureTime = uint64(depTime)

		var ok bool
		if c.Trip, ok = w.TripByGlobalID(tripID); !ok {
			return stats, fmt.Errorf("connection %s: unknown trip %s", c.GlobalID, tripID)
		}
		if c.DepartureStop, ok = w.StopByGlobalID(depStop); !ok {
			return stats, fmt.Errorf("connection %s: %s: %w", c.GlobalID, depStop, timetable.ErrUnknownStop)
		}
		if c.ArrivalStop, ok = w.StopByGlobalID(arrStop); !ok {
			return stats, fmt.Errorf("connection %s: %s: %w", c.GlobalID, arrStop, timetable.ErrUnknownStop)
		}
		if _, err := w.AddOrUpdateConnection(c); err != nil {
			return stats, err
		}
		stats.Connections++
	}
	return stats, rows.Err()
}

// Load fills tt with the stored timetable and publishes the result. Nothing
// is published when loading fails.
func (db *DB) Load(ctx context.Context, tt *timetable.DB) (*timetable.Snapshot, error) {
	start := time.Now()

	w, err := tt.Writer()
	if err != nil {
		return nil, err
	}
	stats, err := db.LoadInto(ctx, w)
	if err != nil {
		w.Abort()
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	s := w.Close()

	db.logger.Info("timetable loaded",
		"duration", time.Since(start).Round(time.Millisecond),
		"stops", stats.Stops,
		"trips", stats.Trips,
		"connections", stats.Connections,
	)
	return s, nil
}
