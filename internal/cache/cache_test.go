package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/session"
)

func newMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := NewMemory(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestKeyFormat(t *testing.T) {
	k := Key{Scope: UserScope("u1"), Group: GroupRecommendations, Op: "by_type", Params: []string{"book"}}
	assert.Equal(t, "user:u1|recommendations|g3|by_type|book", k.format(3))

	k = Key{Scope: VisitorScope("v1"), Group: GroupPeople, Op: "list"}
	assert.Equal(t, "visitor:v1|people|g0|list|", k.format(0))
}

func TestGenerationRedisKey(t *testing.T) {
	assert.Equal(t, "gen:user:u1:categories", generationRedisKey(UserScope("u1"), GroupCategories))
}

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	key := Key{Scope: UserScope("u1"), Group: GroupRecommendations, Op: "list"}

	_, gen, ok := m.Get(ctx, key)
	assert.False(t, ok)
	assert.Zero(t, gen)

	m.Set(ctx, key, gen, []byte(`["a"]`))
	got, _, ok := m.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `["a"]`, string(got))
}

func TestMemory_InvalidateIsGroupAndScopeGranular(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	recs := Key{Scope: UserScope("u1"), Group: GroupRecommendations, Op: "list"}
	people := Key{Scope: UserScope("u1"), Group: GroupPeople, Op: "list"}
	otherUser := Key{Scope: UserScope("u2"), Group: GroupRecommendations, Op: "list"}
	for _, k := range []Key{recs, people, otherUser} {
		m.Set(ctx, k, 0, []byte("x"))
	}

	m.Invalidate(ctx, UserScope("u1"), GroupRecommendations)

	_, _, ok := m.Get(ctx, recs)
	assert.False(t, ok)
	_, _, ok = m.Get(ctx, people)
	assert.True(t, ok)
	_, _, ok = m.Get(ctx, otherUser)
	assert.True(t, ok)

	m.Invalidate(ctx, UserScope("u1"))
	_, _, ok = m.Get(ctx, people)
	assert.False(t, ok)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	key := Key{Scope: UserScope("u1"), Group: GroupCategories, Op: "list"}

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"wine", "board-games"}, nil
	}

	first, err := Cached(ctx, m, key, load)
	require.NoError(t, err)
	second, err := Cached(ctx, m, key, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	m.Invalidate(ctx, key.Scope, key.Group)
	_, err = Cached(ctx, m, key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCached_InvalidationDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	key := Key{Scope: UserScope("u1"), Group: GroupRecommendations, Op: "list"}

	// A write lands while the read is still loading.
	got, err := Cached(ctx, m, key, func(ctx context.Context) (string, error) {
		m.Invalidate(ctx, key.Scope, key.Group)
		return "before-write", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "before-write", got)

	got, err = Cached(ctx, m, key, func(context.Context) (string, error) {
		return "after-write", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after-write", got)
}

func TestMemory_SetUnderOldGenerationIsUnreachable(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	key := Key{Scope: UserScope("u1"), Group: GroupPeople, Op: "list"}

	_, gen, _ := m.Get(ctx, key)
	m.Invalidate(ctx, key.Scope, key.Group)
	m.Set(ctx, key, gen, []byte("x"))

	_, current, ok := m.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, gen+1, current)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	key := Key{Scope: UserScope("u1"), Group: GroupPeople, Op: "list"}

	_, err := Cached(ctx, m, key, func(context.Context) (int, error) { return 0, errors.New("down") })
	require.Error(t, err)

	got, err := Cached(ctx, m, key, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestCached_NilCacheAlwaysLoads(t *testing.T) {
	calls := 0
	for range 3 {
		_, err := Cached(context.Background(), nil, Key{}, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestInvalidateOnSessionChange(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	k1 := Key{Scope: UserScope("u1"), Group: GroupRecommendations, Op: "list"}
	k2 := Key{Scope: UserScope("u2"), Group: GroupRecommendations, Op: "list"}
	m.Set(ctx, k1, 0, []byte("x"))
	m.Set(ctx, k2, 0, []byte("x"))

	events := make(chan session.Event, 2)
	events <- session.Event{Kind: session.EventSignedOut, UserID: "u1"}
	events <- session.Event{Kind: session.EventRegistered, UserID: "u2"}
	close(events)

	InvalidateOnSessionChange(ctx, m, events, slog.New(slog.DiscardHandler))

	_, _, ok := m.Get(ctx, k1)
	assert.False(t, ok)
	_, _, ok = m.Get(ctx, k2)
	assert.True(t, ok, "registration does not touch the cache")
}
