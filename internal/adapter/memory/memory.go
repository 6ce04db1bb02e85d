// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bpmnstudio/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	diagrams []*domain.Diagram
	sessions map[string]*domain.Session

	userIDCounter    int64
	diagramIDCounter int64
	sessionIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.DiagramRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// Ping always succeeds.
func (db *DB) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (db *DB) Close() error { return nil }

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	now := time.Now().UTC()
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// Update replaces the stored user with the same ID.
func (db *DB) Update(ctx context.Context, u *domain.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, existing := range db.users {
		if existing.ID == u.ID {
			cp := *u
			cp.CreatedAt = existing.CreatedAt
			db.users[i] = &cp
			return nil
		}
	}
	return nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- DiagramRepository ---

func (db *DB) findDiagram(id int64) *domain.Diagram {
	for _, d := range db.diagrams {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (db *DB) findOwned(userID, id int64) *domain.Diagram {
	if d := db.findDiagram(id); d != nil && d.UserID == userID {
		return d
	}
	return nil
}

// CreateDiagram stores a new diagram and returns its id.
func (db *DB) CreateDiagram(ctx context.Context, userID int64, name, xml string, now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.diagramIDCounter++
	db.diagrams = append(db.diagrams, &domain.Diagram{
		ID:        db.diagramIDCounter,
		Name:      name,
		XML:       xml,
		UserID:    userID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	})
	return db.diagramIDCounter, nil
}

// UpdateDiagram overwrites an owned diagram.
func (db *DB) UpdateDiagram(ctx context.Context, userID, id int64, name, xml string, now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	d := db.findOwned(userID, id)
	if d == nil {
		return 0, nil
	}
	d.Name = name
	d.XML = xml
	d.UpdatedAt = now.UTC()
	return 1, nil
}

// OwnsDiagram reports whether userID owns diagram id.
func (db *DB) OwnsDiagram(ctx context.Context, userID, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.findOwned(userID, id) != nil, nil
}

// DiagramExists reports whether diagram id exists for any owner.
func (db *DB) DiagramExists(ctx context.Context, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.findDiagram(id) != nil, nil
}

// GetDiagram returns a copy of an owned diagram.
func (db *DB) GetDiagram(ctx context.Context, userID, id int64) (*domain.Diagram, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	d := db.findOwned(userID, id)
	if d == nil {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// ListDiagrams lists the owner's diagrams, newest update first.
func (db *DB) ListDiagrams(ctx context.Context, userID int64) ([]domain.DiagramSummary, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.DiagramSummary, 0)
	for _, d := range db.diagrams {
		if d.UserID != userID {
			continue
		}
		result = append(result, domain.DiagramSummary{
			ID:        d.ID,
			Name:      d.Name,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// RenameDiagram renames an owned diagram.
func (db *DB) RenameDiagram(ctx context.Context, userID, id int64, name string, now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	d := db.findOwned(userID, id)
	if d == nil {
		return 0, nil
	}
	d.Name = name
	d.UpdatedAt = now.UTC()
	return 1, nil
}

// DeleteDiagram deletes an owned diagram.
func (db *DB) DeleteDiagram(ctx context.Context, userID, id int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, d := range db.diagrams {
		if d.ID == id && d.UserID == userID {
			db.diagrams = append(db.diagrams[:i], db.diagrams[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessionIDCounter++
	r.db.sessions[token] = &domain.Session{
		ID:        r.db.sessionIDCounter,
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expiry is left to the caller.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
