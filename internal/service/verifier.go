package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
)

// TokenVerifier resolves access tokens to live users. It is what the
// session oracle consults, and AuthService embeds it.
type TokenVerifier struct {
	db           store.Users
	tokenService *auth.TokenService
}

// NewTokenVerifier creates a token verifier.
func NewTokenVerifier(db store.Users, tokenService *auth.TokenService) *TokenVerifier {
	return &TokenVerifier{db: db, tokenService: tokenService}
}

// VerifyAccessToken validates a token and returns the associated user.
func (v *TokenVerifier) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := v.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	user, err := v.db.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errors.New("user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}
