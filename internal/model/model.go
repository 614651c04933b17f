// Package model defines domain entities shared by the client sync layer and the row-store server.
package model

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry
}

// Account is a server-side identity. Passwords are never stored in plaintext.
type Account struct {
	ID        uuid.UUID // PK
	Email     string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-account salt
	Name      string
	Role      Role
	CreatedAt time.Time
}

// User projects the public part of an account as seen by clients.
func (a Account) User() User {
	return User{
		ID:       a.ID.String(),
		Name:     a.Name,
		Username: a.Email,
		Role:     a.Role,
		JoinedAt: a.CreatedAt,
	}
}

// UserMeta is the profile data attached to an account at sign-up.
type UserMeta struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Row is one stored app_state entry keyed by user id (or "global").
type Row struct {
	ID        string          `json:"id"`
	StateJSON json.RawMessage `json:"state_json"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Session is an authenticated client session.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// Expired reports whether the session token is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return s.AccessToken == "" || !now.Before(s.ExpiresAt)
}

// NewID returns a random identifier for client-created entities.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}
