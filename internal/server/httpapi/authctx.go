package httpapi

import (
	"context"

	"github.com/and161185/coachboard/internal/service"
)

type ctxKey string

const claimsKey ctxKey = "cb.claims"

// WithClaims stores verified token claims in context.
func WithClaims(ctx context.Context, c service.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromCtx fetches token claims from context.
func ClaimsFromCtx(ctx context.Context) (service.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(service.Claims)
	return c, ok
}
