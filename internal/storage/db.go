package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBPath returns the default LifeQuest DB location.
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".lifequest.db"), nil
}

// ResolveDBPath returns the DB path, honoring the LIFEQUEST_DB override.
func ResolveDBPath() (string, error) {
	if p := os.Getenv("LIFEQUEST_DB"); p != "" {
		return p, nil
	}
	return DefaultDBPath()
}

// Open opens (creating if missing) the SQLite database at path and runs
// migrations. A single connection keeps every logical operation on one
// writer, which is the write-serialized access the engine requires.
// Timestamps are stored in SQLite's own format so date() and julianday()
// can read them.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
