package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/cache"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/store"
	"github.com/recshelf/recshelf-server/internal/store/sqlite"
	"github.com/recshelf/recshelf-server/internal/validation"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

// env wires the services against a temp-dir SQLite store, the memory
// cache and an in-memory visitor registry.
type env struct {
	db       store.Database
	tokens   *auth.TokenService
	visitors *visitor.Registry
	cache    *cache.Memory
	notifier *session.Notifier
	facade   *storage.Facade

	recs     *RecommendationService
	transfer *TransferService
	sessions *SessionService
	auth     *AuthService
}

type envOptions struct {
	wrapDB             func(store.Database) store.Database
	allowVisitorWrites bool
}

func newEnv(t *testing.T, opts envOptions) *env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	dir := t.TempDir()

	base, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })

	var db store.Database = base
	if opts.wrapDB != nil {
		db = opts.wrapDB(base)
	}

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	mem, err := cache.NewMemory(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	notifier := session.NewNotifier(logger)
	t.Cleanup(func() { notifier.Close() })

	e := &env{
		db:       db,
		tokens:   tokens,
		visitors: visitor.NewRegistry(visitor.Samples(), nil, logger),
		cache:    mem,
		notifier: notifier,
	}

	verifier := NewTokenVerifier(db, tokens)
	oracle := session.NewOracle(verifier, logger)
	e.facade = storage.New(db, e.visitors, oracle, storage.Options{AllowVisitorWrites: opts.allowVisitorWrites}, logger)

	v := validation.New()
	e.recs = NewRecommendationService(e.facade, mem, v, 15, logger)
	e.transfer = NewTransferService(e.facade, e.visitors, mem, logger)
	e.sessions = NewSessionService(db, tokens, logger)
	e.auth = NewAuthService(db, tokens, e.sessions, e.transfer, notifier, v, logger)
	return e
}

// register creates an account and returns a context authenticated as it.
func (e *env) register(t *testing.T, email string) (context.Context, *RegisterResponse) {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Email:       email,
		Password:    "correct-horse",
		DisplayName: "Test User",
	})
	require.NoError(t, err)
	return session.WithToken(context.Background(), resp.AccessToken), resp
}

func visitorContext(visitorID string) context.Context {
	return visitor.WithID(context.Background(), visitorID)
}
