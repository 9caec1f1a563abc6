// Package session defines the server-side login sessions.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/account"
)

// ErrNotFound is returned by a Store for unknown and expired sessions.
var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string       `json:"id"`
	AccountID int          `json:"account_id"`
	Role      account.Role `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// New starts a session for acc, valid for ttl.
func New(acc account.Account, ttl time.Duration) Session {
	now := time.Now().UTC()
	return Session{
		ID:        uuid.New().String(),
		AccountID: acc.ID,
		Role:      acc.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL is the remaining lifetime of the session.
func (s Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

type Store interface {
	Save(ctx context.Context, sess Session) error
	// Get returns ErrNotFound if the session does not exist or has expired.
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
