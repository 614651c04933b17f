// Package limiter throttles repeated failed sign-ins per email and client address.
package limiter

import (
	"context"
	"time"
)

// Limiter controls sign-in attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether sign-in is currently allowed and, if not, when to retry.
	Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful sign-in.
	Success(ctx context.Context, email string, ipHash []byte) error
	// Failure records a failed attempt and may place a temporary block.
	Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
}

// Settings are the lockout parameters.
type Settings struct {
	Window   time.Duration // failures older than this start a new count
	MaxFails int
	BlockFor time.Duration
}

// DefaultSettings allow five failures per fifteen minutes.
var DefaultSettings = Settings{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}
