// Package session keeps server-side login sessions and binds them to a
// signed cookie.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store for a missing or expired session.
var ErrNotFound = errors.New("session not found")

// Data is the server-side state behind one cookie.
type Data struct {
	UserID    string    `json:"userId" bson:"user_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry.
func (d *Data) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// Store persists sessions by id. Get must never return an expired session.
type Store interface {
	Save(ctx context.Context, id string, d Data) error
	Get(ctx context.Context, id string) (*Data, error)
	Destroy(ctx context.Context, id string) error
	// Purge deletes expired sessions, or every session when all is true.
	Purge(ctx context.Context, all bool) (int64, error)
}
