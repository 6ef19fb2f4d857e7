package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/domain"
)

type fakeVerifier struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (f *fakeVerifier) VerifyAccessToken(_ context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	user, ok := f.users[token]
	if !ok {
		return nil, nil, errors.New("invalid token")
	}
	return user, &auth.AccessClaims{UserID: user.ID}, nil
}

func TestOracle(t *testing.T) {
	verifier := &fakeVerifier{users: map[string]*domain.User{"good": {ID: "user-1"}}}
	oracle := NewOracle(verifier, slog.New(slog.DiscardHandler))

	tests := []struct {
		name   string
		ctx    context.Context
		wantID string
		wantOK bool
	}{
		{"no token", context.Background(), "", false},
		{"empty token", WithToken(context.Background(), ""), "", false},
		{"unknown token", WithToken(context.Background(), "bad"), "", false},
		{"valid token", WithToken(context.Background(), "good"), "user-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := oracle.CurrentUserID(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantOK, oracle.IsAuthenticated(tt.ctx))
		})
	}
}

func TestOracle_BackendFailureReadsAsAnonymous(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("connection refused")}
	oracle := NewOracle(verifier, slog.New(slog.DiscardHandler))

	assert.False(t, oracle.IsAuthenticated(WithToken(context.Background(), "good")))
}

func TestOracle_DoesNotCache(t *testing.T) {
	verifier := &fakeVerifier{users: map[string]*domain.User{"good": {ID: "user-1"}}}
	oracle := NewOracle(verifier, slog.New(slog.DiscardHandler))
	ctx := WithToken(context.Background(), "good")

	assert.True(t, oracle.IsAuthenticated(ctx))
	delete(verifier.users, "good")
	assert.False(t, oracle.IsAuthenticated(ctx))
	assert.Equal(t, 2, verifier.calls)
}
