package visitor

import "context"

type contextKey struct{}

// WithID returns a context carrying the visitor ID.
func WithID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, contextKey{}, visitorID)
}

// IDFromContext returns the visitor ID set by WithID.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
