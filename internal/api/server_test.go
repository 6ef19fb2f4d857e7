package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/cache"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/store/sqlite"
	"github.com/recshelf/recshelf-server/internal/validation"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

// testEnvelope mirrors APIEnvelope with typed data for decoding.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope mirrors APIErrorEnvelope.
type testErrorEnvelope struct {
	Version int    `json:"v"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type testServer struct {
	*Server
	api      humatest.TestAPI
	visitors *visitor.Registry
}

type testOptions struct {
	allowVisitorWrites bool
	authPerMinute      int
	probes             []Probe
}

// setupTestServer wires a server against a temp-dir SQLite store and an
// in-memory visitor registry.
func setupTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	dir := t.TempDir()

	db, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	mem, err := cache.NewMemory(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	notifier := session.NewNotifier(logger)
	t.Cleanup(func() { notifier.Close() })

	visitors := visitor.NewRegistry(visitor.Samples(), nil, logger)
	oracle := session.NewOracle(service.NewTokenVerifier(db, tokens), logger)
	facade := storage.New(db, visitors, oracle, storage.Options{AllowVisitorWrites: opts.allowVisitorWrites}, logger)

	v := validation.New()
	sessions := service.NewSessionService(db, tokens, logger)
	transfer := service.NewTransferService(facade, visitors, mem, logger)
	services := &Services{
		Auth:            service.NewAuthService(db, tokens, sessions, transfer, notifier, v, logger),
		Recommendations: service.NewRecommendationService(facade, mem, v, 15, logger),
	}

	s := NewServer(db, services, Options{
		MetricsEnabled:        true,
		AuthRequestsPerMinute: opts.authPerMinute,
		AuthBurst:             opts.authPerMinute,
		Probes:                opts.probes,
	}, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server:   s,
		api:      humatest.Wrap(t, s.API()),
		visitors: visitors,
	}
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()
	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

// registerUser creates an account and returns its bearer header.
func (ts *testServer) registerUser(t *testing.T, email string, extra ...any) (string, service.RegisterResponse) {
	t.Helper()
	args := append([]any{}, extra...)
	args = append(args, map[string]any{
		"email":        email,
		"password":     "correct-horse",
		"display_name": "Test User",
	})
	resp := ts.api.Post("/api/v1/auth/register", args...)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[service.RegisterResponse](t, resp.Body.Bytes())
	return "Authorization: Bearer " + env.Data.AccessToken, env.Data
}
