// Package sqlstore implements the domain repositories on database/sql. The
// same queries serve SQLite and PostgreSQL; only the placeholder syntax differs.
package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"bpmnstudio/internal/db"
	"bpmnstudio/internal/domain"
)

// Store wraps a *sql.DB and implements domain repository interfaces.
type Store struct {
	conn    *sql.DB
	dialect db.Dialect
}

var (
	_ domain.UserRepository    = (*Store)(nil)
	_ domain.DiagramRepository = (*Store)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

// New wraps an open, migrated database.
func New(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{conn: conn, dialect: dialect}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Dialect reports the SQL flavour the store speaks.
func (s *Store) Dialect() db.Dialect {
	return s.dialect
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
