package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Session is a server-side login session referenced by the sid JWT claim
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Data      map[string]any `json:"data,omitempty"`
	ExpiresAt time.Time      `json:"expiresAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Store persists sessions. Get returns errorx.ErrSessionExpired for unknown or expired ids.
type Store interface {
	Create(ctx context.Context, userID string, data map[string]any) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// newID returns 32 random bytes, hex encoded
func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
