package tracing

import (
	"context"

	"github.com/corelinkhq/kernelmgr/internal/shared/id"
)

// Header is the HTTP header carrying the request correlation id.
const Header = "X-Request-ID"

type ctxKey struct{}

// WithRequestID returns a context carrying the given request id.
func WithRequestID(ctx context.Context, rid id.RequestID) context.Context {
	return context.WithValue(ctx, ctxKey{}, rid)
}

// FromContext extracts the request id from the context if one is present.
func FromContext(ctx context.Context) (id.RequestID, bool) {
	rid, ok := ctx.Value(ctxKey{}).(id.RequestID)
	return rid, ok
}

// Ensure returns the context's request id, minting one when absent. Callers
// that fan out several requests under one operation put the id on the
// context up front; everything else gets a fresh id per request.
func Ensure(ctx context.Context) (context.Context, id.RequestID) {
	if rid, ok := FromContext(ctx); ok {
		return ctx, rid
	}
	rid := id.NewRequestID()
	return WithRequestID(ctx, rid), rid
}
