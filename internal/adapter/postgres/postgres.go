// Package postgres opens the PostgreSQL-backed store.
package postgres

import (
	"context"
	"database/sql"

	"bpmnstudio/internal/adapter/sqlstore"
	"bpmnstudio/internal/db"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(ctx context.Context, connStr string) (*sqlstore.Store, error) {
	conn, err := db.Open(ctx, "postgres", connStr, db.Postgres)
	if err != nil {
		return nil, err
	}
	return NewStore(conn), nil
}

// NewStore wraps an already migrated PostgreSQL connection.
func NewStore(conn *sql.DB) *sqlstore.Store {
	return sqlstore.New(conn, db.Postgres)
}
