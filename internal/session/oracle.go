// Package session answers whether a request is acting as an authenticated
// user and broadcasts sign-in and sign-out changes.
package session

import (
	"context"
	"log/slog"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/domain"
)

type tokenKey struct{}

// WithToken returns a context carrying the caller's raw bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// TokenVerifier checks an access token against live accounts.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error)
}

// Oracle reports the identity behind a request. Nothing is cached: every
// call verifies the token again.
type Oracle struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewOracle creates an oracle backed by verifier.
func NewOracle(verifier TokenVerifier, logger *slog.Logger) *Oracle {
	return &Oracle{verifier: verifier, logger: logger}
}

// IsAuthenticated reports whether ctx carries a token for a live session.
func (o *Oracle) IsAuthenticated(ctx context.Context) bool {
	_, ok := o.CurrentUserID(ctx)
	return ok
}

// CurrentUserID returns the authenticated user's ID. Any verification
// failure, including an unreachable account store, reads as anonymous.
func (o *Oracle) CurrentUserID(ctx context.Context) (string, bool) {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return "", false
	}
	user, _, err := o.verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		o.logger.Debug("token rejected, treating caller as visitor", "error", err)
		return "", false
	}
	return user.ID, true
}
