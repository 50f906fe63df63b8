package models

import "time"

// User represents a registered account.
//
// Password is stored exactly as submitted. It is never hashed, which is a
// known weakness of the current schema.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Principal is the authenticated identity a request acts as.
type Principal struct {
	UserID   int64
	Username string
}

// Principal returns the identity bound to this user.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Username: u.Username}
}

// IsZero reports whether the principal carries no identity.
func (p Principal) IsZero() bool {
	return p.UserID == 0
}
