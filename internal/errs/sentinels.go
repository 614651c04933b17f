// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/client layers.
var (
	// ErrNotFound indicates the requested entity or row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or invalid credential (token, api key).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller is authenticated but lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalid indicates a request that failed validation.
	ErrInvalid = errors.New("invalid")

	// ErrRemoteDisabled indicates the remote store is not configured (no URL/key).
	ErrRemoteDisabled = errors.New("cloud not configured")

	// ErrAuth indicates an authentication failure reported by the remote store.
	ErrAuth = errors.New("auth failed")

	// ErrNotReady indicates a state mutation attempted before the state finished loading.
	ErrNotReady = errors.New("state not ready")
)
