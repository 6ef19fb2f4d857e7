package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/domain"
)

func newTestPersister(t *testing.T, dir string) *BadgerPersister {
	t.Helper()
	p, err := OpenBadger(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return p
}

func TestRegistry_IsolatesVisitors(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Samples(), nil, slog.New(slog.DiscardHandler))

	a, err := r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	b, err := r.Get(ctx, "visitor-b")
	require.NoError(t, err)

	require.NoError(t, a.Remove("sample-rec-1"))
	assert.NotContains(t, ids(a.List()), "sample-rec-1")
	assert.Contains(t, ids(b.List()), "sample-rec-1")

	same, err := r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Same(t, a, same)
}

func TestRegistry_DiscardStartsFresh(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Samples(), nil, slog.New(slog.DiscardHandler))

	s, err := r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	require.NoError(t, s.Add(newVisitorRec("rec-a", Samples().People[0])))

	require.NoError(t, r.Discard(ctx, "visitor-a"))

	s, err = r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Zero(t, s.VisitorCount())
}

func TestRegistry_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	r := NewRegistry(Samples(), newTestPersister(t, dir), slog.New(slog.DiscardHandler))
	s, err := r.Get(ctx, "visitor-a")
	require.NoError(t, err)

	require.NoError(t, s.AddPerson(&domain.Person{ID: "person-1", Name: "Lena"}))
	require.NoError(t, s.Add(newVisitorRec("rec-a", domain.Person{ID: "person-1"})))
	require.NoError(t, s.Remove("sample-rec-1"))
	require.NoError(t, s.AddCategory(&domain.CustomCategory{ID: "cat-1", Type: "wine", Label: "Wine"}))
	require.NoError(t, r.Close())

	r = NewRegistry(Samples(), newTestPersister(t, dir), slog.New(slog.DiscardHandler))
	defer r.Close()

	ids2, err := r.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"visitor-a"}, ids2)

	s, err = r.Get(ctx, "visitor-a")
	require.NoError(t, err)

	got, err := s.Get("rec-a")
	require.NoError(t, err)
	assert.Equal(t, "Lena", got.Recommender.Name)
	assert.NotContains(t, ids(s.List()), "sample-rec-1")
	assert.Len(t, s.ListCategories(), 1)

	require.NoError(t, r.Discard(ctx, "visitor-a"))
	ids3, err := r.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids3)
}

func TestRegistry_EvictsIdleStores(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Samples(), nil, slog.New(slog.DiscardHandler), WithIdleTTL(time.Hour))
	defer r.Close()

	clock := time.Now()
	r.now = func() time.Time { return clock }

	for i := range 1000 {
		_, err := r.Get(ctx, fmt.Sprintf("one-shot-%d", i))
		require.NoError(t, err)
	}
	clock = clock.Add(30 * time.Minute)
	active, err := r.Get(ctx, "one-shot-0")
	require.NoError(t, err)
	assert.Equal(t, 1000, r.Len())

	clock = clock.Add(45 * time.Minute)
	assert.Equal(t, 999, r.evictIdle())
	assert.Equal(t, 1, r.Len())

	same, err := r.Get(ctx, "one-shot-0")
	require.NoError(t, err)
	assert.Same(t, active, same)
}

func TestRegistry_EvictionKeepsPersistedState(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Samples(), newTestPersister(t, t.TempDir()), slog.New(slog.DiscardHandler), WithIdleTTL(time.Minute))
	defer r.Close()

	clock := time.Now()
	r.now = func() time.Time { return clock }

	s, err := r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	require.NoError(t, s.AddPerson(&domain.Person{ID: "person-1", Name: "Lena"}))
	require.NoError(t, s.Add(newVisitorRec("rec-a", domain.Person{ID: "person-1"})))

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, r.evictIdle())

	s, err = r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, 1, s.VisitorCount())
}

func TestRegistry_TakeClaimsOnce(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Samples(), nil, slog.New(slog.DiscardHandler))
	defer r.Close()

	s, err := r.Get(ctx, "visitor-a")
	require.NoError(t, err)
	require.NoError(t, s.Add(newVisitorRec("rec-a", Samples().People[0])))

	taken, err := r.Take(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Same(t, s, taken)
	assert.Zero(t, r.Len())

	_, err = r.Take(ctx, "visitor-a")
	assert.ErrorIs(t, err, ErrClaimed)

	require.NoError(t, r.Discard(ctx, "visitor-a"))
	fresh, err := r.Take(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Zero(t, fresh.VisitorCount())
}

// slowPersister blocks loads of one visitor until release is closed.
type slowPersister struct {
	Persister
	slowID  string
	started chan struct{}
	release chan struct{}
}

func (p *slowPersister) Load(ctx context.Context, visitorID string) (*State, error) {
	if visitorID == p.slowID {
		close(p.started)
		<-p.release
	}
	return p.Persister.Load(ctx, visitorID)
}

func TestRegistry_SlowLoadDoesNotBlockOtherVisitors(t *testing.T) {
	ctx := context.Background()
	p := &slowPersister{
		Persister: newTestPersister(t, t.TempDir()),
		slowID:    "visitor-slow",
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	r := NewRegistry(Samples(), p, slog.New(slog.DiscardHandler))
	defer r.Close()

	slowDone := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "visitor-slow")
		slowDone <- err
	}()
	<-p.started

	fastDone := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "visitor-fast")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Get for another visitor waited on a slow load")
	}

	close(p.release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, 2, r.Len())
}

func TestBadgerPersister_LoadMissing(t *testing.T) {
	p := newTestPersister(t, t.TempDir())
	defer p.Close()

	st, err := p.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, st)
}
