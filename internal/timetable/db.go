// Package timetable is an in-memory transit database. Data is added through
// a single Writer; closing the writer publishes an immutable Snapshot that
// any number of scans can read concurrently.
package timetable

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrWriterActive is returned by DB.Writer while another writer is open.
	ErrWriterActive = errors.New("a writer is already open")
	// ErrUnknownStop is returned when a connection refers to a stop the writer does not know.
	ErrUnknownStop = errors.New("unknown stop")
	// ErrUnknownConnection is returned for delay updates on a missing connection.
	ErrUnknownConnection = errors.New("unknown connection")
)

// DB holds the latest snapshot of one timetable.
type DB struct {
	id     uint32
	logger *slog.Logger

	mu      sync.Mutex
	latest  *Snapshot
	writing bool
}

// New creates an empty database. databaseID ends up in every stop, trip and
// connection id it hands out.
func New(databaseID uint32, logger *slog.Logger) *DB {
	return &DB{
		id:     databaseID,
		logger: logger,
		latest: emptySnapshot(databaseID),
	}
}

// ID returns the database id.
func (db *DB) ID() uint32 { return db.id }

// Latest returns the most recently published snapshot.
func (db *DB) Latest() *Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.latest
}

// Writer opens a writer seeded with the latest snapshot. Only one writer can
// be open at a time.
func (db *DB) Writer() (*Writer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.writing {
		return nil, ErrWriterActive
	}
	db.writing = true
	return newWriter(db, db.latest), nil
}

func (db *DB) publish(s *Snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.latest = s
	db.writing = false
	db.logger.Info("timetable snapshot published",
		"stops", len(s.stops),
		"trips", len(s.trips),
		"connections", len(s.connections),
	)
}

func (db *DB) release() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.writing = false
}
