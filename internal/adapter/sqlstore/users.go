package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bpmnstudio/internal/domain"
)

const userColumns = "id, username, password_hash, two_factor_secret, two_factor_enabled, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TwoFactorSecret, &u.TwoFactorEnabled, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername retrieves a user by exact username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err != nil {
		return nil, fmt.Errorf("db: get user %q: %w", username, err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("db: get user %d: %w", id, err)
	}
	return u, nil
}

// Create creates a new user.
func (s *Store) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	now := utc(time.Now())
	var id int64
	err := s.queryRow(ctx,
		"INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id",
		username, passwordHash, now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("db: create user %q: %w", username, err)
	}
	return &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Update persists the mutable fields of u.
func (s *Store) Update(ctx context.Context, u *domain.User) error {
	_, err := s.exec(ctx,
		"UPDATE users SET username = ?, password_hash = ?, two_factor_secret = ?, two_factor_enabled = ?, updated_at = ? WHERE id = ?",
		u.Username, u.PasswordHash, u.TwoFactorSecret, u.TwoFactorEnabled, utc(u.UpdatedAt), u.ID,
	)
	if err != nil {
		return fmt.Errorf("db: update user %d: %w", u.ID, err)
	}
	return nil
}

// Count returns the total number of users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("db: count users: %w", err)
	}
	return count, nil
}
