package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/storage"
)

func TestRegister_ReturnsTokens(t *testing.T) {
	ts := setupTestServer(t, testOptions{})

	bearer, resp := ts.registerUser(t, "ada@example.com")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Nil(t, resp.Transfer, "no visitor id, no transfer")

	sess := ts.api.Get("/api/v1/auth/session", bearer)
	require.Equal(t, http.StatusOK, sess.Code)
	info := decode[SessionInfo](t, sess.Body.Bytes())
	assert.Equal(t, storage.ModeAccount, info.Data.Mode)
	require.NotNil(t, info.Data.User)
	assert.Equal(t, resp.User.ID, info.Data.User.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	ts.registerUser(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "ada@example.com",
		"password":     "another-pass",
		"display_name": "Ada Again",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRegister_InvalidBody(t *testing.T) {
	ts := setupTestServer(t, testOptions{})

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "not-an-email",
		"password":     "short",
		"display_name": "",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION", decodeError(t, resp.Body.Bytes()).Code)
}

func TestRegister_TransfersVisitorItems(t *testing.T) {
	ts := setupTestServer(t, testOptions{allowVisitorWrites: true})
	visitorHdr := "X-Visitor-ID: 7b0f4a52-1b9e-4a55-9a53-1c1f1b4c2d11"

	for _, title := range []string{"Dune", "The Bear"} {
		resp := ts.api.Post("/api/v1/recommendations", visitorHdr, map[string]any{
			"title":            title,
			"type":             "book",
			"recommender_name": "Sam",
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	bearer, reg := ts.registerUser(t, "visitor@example.com", visitorHdr)
	require.NotNil(t, reg.Transfer)
	assert.Equal(t, 2, reg.Transfer.Attempted)
	assert.Equal(t, 2, reg.Transfer.Transferred)
	assert.False(t, reg.Transfer.Partial)

	list := ts.api.Get("/api/v1/recommendations", bearer)
	require.Equal(t, http.StatusOK, list.Code)
	recs := decode[ListRecommendationsResponse](t, list.Body.Bytes()).Data.Recommendations
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, domain.OriginAccount, r.Origin)
		assert.Equal(t, "Sam", r.Recommender.Name)
	}
}

func TestLogin(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	ts.registerUser(t, "ada@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "ada@example.com",
			"password": "correct-horse",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		env := decode[service.AuthResponse](t, resp.Body.Bytes())
		assert.True(t, env.Success)
		assert.NotEmpty(t, env.Data.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "ada@example.com",
			"password": "wrong-horse",
		})
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp.Body.Bytes()).Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "correct-horse",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestRefresh_RotatesToken(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	_, reg := ts.registerUser(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": reg.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	rotated := decode[service.AuthResponse](t, resp.Body.Bytes()).Data
	assert.NotEqual(t, reg.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, reg.SessionID, rotated.SessionID)

	reused := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, reused.Code)
}

func TestLogout(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	bearer, reg := ts.registerUser(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/logout", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// The session is gone, so its refresh token no longer works.
	refresh := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)

	anonymous := ts.api.Post("/api/v1/auth/logout")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)
}

func TestSession_Visitor(t *testing.T) {
	ts := setupTestServer(t, testOptions{})

	resp := ts.api.Get("/api/v1/auth/session", "X-Visitor-ID: visitor-abc-123")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[SessionInfo](t, resp.Body.Bytes()).Data
	assert.Equal(t, storage.ModeVisitor, info.Mode)
	assert.Equal(t, "visitor-abc-123", info.VisitorID)
	assert.Nil(t, info.User)

	// A bad token reads as a visitor, not an error.
	resp = ts.api.Get("/api/v1/auth/session", "Authorization: Bearer garbage")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, storage.ModeVisitor, decode[SessionInfo](t, resp.Body.Bytes()).Data.Mode)
}

func TestAuthRateLimit(t *testing.T) {
	ts := setupTestServer(t, testOptions{authPerMinute: 2})
	body := map[string]any{"email": "nobody@example.com", "password": "whatever"}

	for range 2 {
		resp := ts.api.Post("/api/v1/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/login", body)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp.Body.Bytes()).Code)
}
