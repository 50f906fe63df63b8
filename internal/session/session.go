// Package session keeps server-side login state and flash notices keyed by an
// opaque cookie id.
package session

import (
	"context"

	"github.com/google/uuid"
)

// CookieName is the name of the cookie carrying the session id.
const CookieName = "menurater_session"

// Session is the server-side state behind a cookie. UserID is 0 for an
// anonymous session.
type Session struct {
	ID     string
	UserID int64
}

// Authenticated reports whether a user is bound to the session.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// Store persists sessions. Get returns nil, nil for an unknown or expired id.
type Store interface {
	New(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	SetUser(ctx context.Context, id string, userID int64) error
	AddFlash(ctx context.Context, id, message string) error
	PopFlashes(ctx context.Context, id string) ([]string, error)
	Destroy(ctx context.Context, id string) error
}

func newID() string {
	return uuid.NewString()
}
