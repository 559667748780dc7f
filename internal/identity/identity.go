// Package identity carries the authenticated caller for one request.
package identity

import "context"

// Identity is the authenticated caller's role, user id, and request
// correlation id. It is established once by the middleware pipeline and is
// read-only for the request's lifetime.
type Identity struct {
	CorrelationID string
	Role          string
	UserID        string
}

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity established by the middleware pipeline.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
