// Package session issues and rotates the refresh token half of the auth
// pair. Access JWTs are short lived and stateless; the refresh token is an
// opaque value held server side keyed by the access token's jti, so revoking
// the jti kills the whole pair.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/redis"
)

// ErrInvalidRefreshToken is returned when a presented refresh token does not
// match the stored one for the access id, or no session exists.
var ErrInvalidRefreshToken = errors.New(errors.CodeUnauthorized, "invalid refresh token")

// AccessSessionChecker is the read-only view middleware needs to confirm a
// jti still maps to a live session.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IsNil(err error) bool
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager owns refresh token state in the fast session store.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager wires a Manager against the redis client. The refresh TTL must
// exceed the access token lifetime or rotation can never succeed.
func NewManager(client *redis.Client, refreshTTL, accessTTL time.Duration) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("session manager requires a redis client")
	}
	if refreshTTL <= 0 {
		return nil, fmt.Errorf("refresh ttl must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("refresh ttl must exceed access token lifetime")
	}
	return &Manager{store: client, keyer: client, ttl: refreshTTL}, nil
}

// NewAccessID mints the jti used to key the session.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate creates a fresh refresh token for the access id and stores it.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "failed to generate refresh token")
	}
	key := m.keyer.AccessSessionKey(accessID)
	if err := m.store.Set(ctx, key, token, m.ttl); err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "failed to persist refresh token")
	}
	return token, nil
}

// Rotate validates the presented refresh token and, on match, replaces it
// under a new access id while deleting the old session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, presented, newAccessID string) (string, error) {
	stored, err := m.store.Get(ctx, m.keyer.AccessSessionKey(oldAccessID))
	if err != nil {
		if m.store.IsNil(err) {
			return "", ErrInvalidRefreshToken
		}
		return "", errors.Wrap(errors.CodeDependency, err, "failed to load session")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return "", ErrInvalidRefreshToken
	}

	token, err := m.Generate(ctx, newAccessID)
	if err != nil {
		return "", err
	}
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(oldAccessID)); err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "failed to revoke previous session")
	}
	return token, nil
}

// Revoke tears down the session for the access id. Missing sessions are not
// an error; revocation is idempotent.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "failed to revoke session")
	}
	return nil
}

// HasSession reports whether a live refresh token exists for the access id.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	_, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if m.store.IsNil(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.CodeDependency, err, "failed to check session")
	}
	return true, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
