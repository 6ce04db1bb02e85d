package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bpmnstudio/internal/domain"
)

// CreateDiagram inserts a diagram owned by userID and returns its new id.
func (s *Store) CreateDiagram(ctx context.Context, userID int64, name, xml string, now time.Time) (int64, error) {
	var id int64
	err := s.queryRow(ctx,
		"INSERT INTO diagrams (name, xml, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		name, xml, userID, utc(now), utc(now),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db: create diagram: %w", err)
	}
	return id, nil
}

// UpdateDiagram overwrites name and xml of an owned diagram.
func (s *Store) UpdateDiagram(ctx context.Context, userID, id int64, name, xml string, now time.Time) (int64, error) {
	res, err := s.exec(ctx,
		"UPDATE diagrams SET name = ?, xml = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		name, xml, utc(now), id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("db: update diagram %d: %w", id, err)
	}
	return res.RowsAffected()
}

// OwnsDiagram reports whether diagram id exists and belongs to userID.
func (s *Store) OwnsDiagram(ctx context.Context, userID, id int64) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM diagrams WHERE id = ? AND user_id = ?", id, userID)
}

// DiagramExists reports whether diagram id exists under any owner.
func (s *Store) DiagramExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM diagrams WHERE id = ?", id)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.queryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db: diagram lookup: %w", err)
	}
	return true, nil
}

// GetDiagram returns an owned diagram, or nil when absent.
func (s *Store) GetDiagram(ctx context.Context, userID, id int64) (*domain.Diagram, error) {
	var d domain.Diagram
	err := s.queryRow(ctx,
		"SELECT id, name, xml, user_id, created_at, updated_at FROM diagrams WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&d.ID, &d.Name, &d.XML, &d.UserID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: get diagram %d: %w", id, err)
	}
	return &d, nil
}

// ListDiagrams returns the owner's diagrams, most recently updated first.
func (s *Store) ListDiagrams(ctx context.Context, userID int64) ([]domain.DiagramSummary, error) {
	rows, err := s.query(ctx,
		"SELECT id, name, created_at, updated_at FROM diagrams WHERE user_id = ? ORDER BY updated_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("db: list diagrams: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DiagramSummary, 0)
	for rows.Next() {
		var d domain.DiagramSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db: list diagrams: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RenameDiagram changes the name of an owned diagram.
func (s *Store) RenameDiagram(ctx context.Context, userID, id int64, name string, now time.Time) (int64, error) {
	res, err := s.exec(ctx,
		"UPDATE diagrams SET name = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		name, utc(now), id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("db: rename diagram %d: %w", id, err)
	}
	return res.RowsAffected()
}

// DeleteDiagram removes an owned diagram.
func (s *Store) DeleteDiagram(ctx context.Context, userID, id int64) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM diagrams WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return 0, fmt.Errorf("db: delete diagram %d: %w", id, err)
	}
	return res.RowsAffected()
}
