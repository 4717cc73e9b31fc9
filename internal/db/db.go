// Package db records tracker runs and their per-frame areas in SQLite.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/skcf/internal/timeutil"
)

// DB is a SQLite database with the run schema applied.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// NewDB opens (creating if needed) the database at path and migrates it to
// the latest schema. Use ":memory:" for a throwaway store.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases and pragmas consistent.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	if err := db.applyPragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) applyPragmas() error {
	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// SetClock replaces the clock used for run timestamps.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = timeutil.OrReal(c)
}
