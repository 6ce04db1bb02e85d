// Package redis stores sessions in Redis so several API instances can share them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bpmnstudio/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "bpmnstudio:session:"
	seqKey    = "bpmnstudio:session:seq"
)

var _ domain.SessionRepository = (*SessionRepo)(nil)

// SessionRepo implements domain.SessionRepository on Redis hashes.
// Each key expires together with its session.
type SessionRepo struct {
	client *redis.Client
}

// NewClient builds a client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewSessionRepo wraps a client.
func NewSessionRepo(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func sessionKey(token string) string {
	return keyPrefix + token
}

// Ping checks that Redis is reachable.
func (r *SessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *SessionRepo) Close() error {
	return r.client.Close()
}

// Create stores a session that Redis expires at expiresAt.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	id, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("redis: next session id: %w", err)
	}

	key := sessionKey(token)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"id":        id,
		"userId":    userID,
		"expiresAt": expiresAt.UTC().UnixNano(),
		"createdAt": time.Now().UTC().UnixNano(),
	})
	pipe.ExpireAt(ctx, key, expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: create session: %w", err)
	}
	return nil
}

// GetByToken loads a session, or returns nil when the key is gone.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	vals, err := r.client.HGetAll(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(vals) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get session: %w", err)
	}

	s := &domain.Session{Token: token}
	fields := []struct {
		name string
		dst  *int64
	}{
		{"id", &s.ID},
		{"userId", &s.UserID},
	}
	for _, f := range fields {
		if *f.dst, err = strconv.ParseInt(vals[f.name], 10, 64); err != nil {
			return nil, fmt.Errorf("redis: session field %s: %w", f.name, err)
		}
	}
	exp, err := strconv.ParseInt(vals["expiresAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: session field expiresAt: %w", err)
	}
	created, err := strconv.ParseInt(vals["createdAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: session field createdAt: %w", err)
	}
	s.ExpiresAt = time.Unix(0, exp).UTC()
	s.CreatedAt = time.Unix(0, created).UTC()
	return s, nil
}

// Delete removes a session; deleting a missing token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts sessions through key expiry.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return nil
}
