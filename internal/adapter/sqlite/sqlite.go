// Package sqlite opens the embedded SQLite store, the default backend.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bpmnstudio/internal/adapter/sqlstore"
	"bpmnstudio/internal/db"

	_ "modernc.org/sqlite"
)

// DSN builds a modernc.org/sqlite DSN with foreign keys on and a busy timeout.
func DSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open creates the database file and its directory if needed, then migrates.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}
	conn, err := db.Open(ctx, "sqlite", DSN(path), db.SQLite)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return sqlstore.New(conn, db.SQLite), nil
}
