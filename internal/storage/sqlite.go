// Package storage persists timetables in SQLite so a restarted server does
// not start from an empty network.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// A timetable is written as one large transaction and read back once on
// start, so losing the last commit on power loss is acceptable.
var pragmas = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
	"_cache_size":   {"-16000"}, // KiB
	"_txlock":       {"immediate"},
}

// DB is a timetable store backed by a single SQLite connection.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Open opens the timetable store at path, creating the file and its schema
// when missing.
func Open(path string, logger *slog.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("open timetable store %s: %w", path, err)
	}
	// one writer at a time; queries run sequentially
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("timetable store %s unreachable: %w", path, err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("timetable store %s schema: %w", path, err)
	}

	logger.Info("timetable store opened", "path", path)
	return db, nil
}
