// Package convert defines the JSON wire shapes of the row-store HTTP API and
// conversions between them and domain models.
package convert

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/coachboard/internal/model"
)

// --- auth ---

// Credentials is the body of sign-in requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest carries credentials plus profile metadata.
type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     model.UserMeta `json:"data"`
}

// SessionResponse is returned by sign-up and sign-in.
type SessionResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        model.User `json:"user"`
}

// UserResponse wraps the authenticated user.
type UserResponse struct {
	User model.User `json:"user"`
}

// --- rows ---

// UpsertRowRequest is the body of a row upsert.
type UpsertRowRequest struct {
	StateJSON json.RawMessage `json:"state_json"`
}

// --- errors ---

// ErrorDetail is a machine code plus a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorBody is the envelope of every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ToSessionResponse converts issued tokens and the account into the wire session.
func ToSessionResponse(tok model.Tokens, acc model.Account) SessionResponse {
	return SessionResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: acc.User()}
}

// ToSession converts a wire session into the client-side model.
func ToSession(r SessionResponse) model.Session {
	return model.Session{AccessToken: r.AccessToken, ExpiresAt: r.ExpiresAt, User: r.User}
}

// NormalizeCredentials trims and lowercases the email.
func NormalizeCredentials(c Credentials) Credentials {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c
}

// NormalizeSignUp trims input and validates required fields.
func NormalizeSignUp(r SignUpRequest) (SignUpRequest, error) {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Data.Name = strings.TrimSpace(r.Data.Name)
	if r.Email == "" || r.Password == "" {
		return r, fmt.Errorf("empty email/password")
	}
	if !strings.Contains(r.Email, "@") {
		return r, fmt.Errorf("invalid email %q", r.Email)
	}
	if r.Data.Role == "" {
		r.Data.Role = model.RoleFriend
	}
	if !r.Data.Role.Valid() {
		return r, fmt.Errorf("invalid role %q", r.Data.Role)
	}
	if r.Data.Name == "" {
		r.Data.Name = r.Email[:strings.Index(r.Email, "@")]
	}
	return r, nil
}
