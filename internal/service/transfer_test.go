package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/recshelf/recshelf-server/internal/cache"
	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/store"
)

// failingInserts rejects recommendations whose title starts with "FAIL".
type failingInserts struct {
	store.Database
}

func (f failingInserts) CreateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error {
	if strings.HasPrefix(rec.Title, "FAIL") {
		return errors.New("insert rejected")
	}
	return f.Database.CreateRecommendation(ctx, ownerID, rec)
}

// seedVisitor adds titles as visitor recommendations and also edits and
// deletes samples, which must never be transferred.
func seedVisitor(t *testing.T, e *env, visitorID string, titles ...string) map[string]bool {
	t.Helper()
	ctx := visitorContext(visitorID)

	ids := make(map[string]bool, len(titles))
	for i, title := range titles {
		by := "Ana"
		if i%2 == 1 {
			by = "Bruno"
		}
		rec, err := e.recs.Create(ctx, bookRequest(title, by))
		require.NoError(t, err)
		ids[rec.ID] = true
	}

	_, err := e.recs.ToggleComplete(ctx, "sample-rec-2")
	require.NoError(t, err)
	require.NoError(t, e.recs.Delete(ctx, "sample-rec-3"))
	return ids
}

func TestTransfer_CopiesOnlyVisitorItemsWithFreshIDs(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	visitorIDs := seedVisitor(t, e, "v1", "Dune", "Arrival", "Piranesi")
	_, err := e.recs.CreateCategory(visitorContext("v1"), CategoryRequest{Label: "Board Games"})
	require.NoError(t, err)

	resp, err := e.auth.Register(visitorContext("v1"), RegisterRequest{
		Email:       "new@example.com",
		Password:    "correct-horse",
		DisplayName: "New User",
		VisitorID:   "v1",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Transfer)
	assert.Equal(t, TransferReport{Attempted: 3, Transferred: 3}, *resp.Transfer)

	ctx := session.WithToken(context.Background(), resp.AccessToken)
	recs, err := e.recs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.False(t, visitorIDs[r.ID], "transferred item reuses visitor id %s", r.ID)
		assert.Equal(t, domain.OriginAccount, r.Origin)
		assert.NotContains(t, r.ID, "sample")
	}

	people, err := e.recs.ListPeople(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 2)

	cats, err := e.recs.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "board-games", cats[0].Type)

	// The visitor store was discarded, so the visitor starts over.
	fresh, err := e.visitors.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Zero(t, fresh.VisitorCount())
}

func TestTransfer_ClaimedStoreIsSkipped(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	seedVisitor(t, e, "v1", "Dune", "Arrival")
	_, resp := e.register(t, "claimed@example.com")

	_, err := e.visitors.Take(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, TransferReport{}, e.transfer.Transfer(context.Background(), "v1", resp.User.ID))

	e.visitors.Release("v1")
	report := e.transfer.Transfer(context.Background(), "v1", resp.User.ID)
	assert.Equal(t, 2, report.Transferred)
}

func TestTransfer_ConcurrentRegistrationsCopyOnce(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	seedVisitor(t, e, "v1", "Dune", "Arrival", "Piranesi")
	ctxA, respA := e.register(t, "first@example.com")
	ctxB, respB := e.register(t, "second@example.com")

	var g errgroup.Group
	reports := make([]TransferReport, 2)
	for i, userID := range []string{respA.User.ID, respB.User.ID} {
		g.Go(func() error {
			reports[i] = e.transfer.Transfer(context.Background(), "v1", userID)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 3, reports[0].Transferred+reports[1].Transferred)

	recsA, err := e.recs.List(ctxA, "")
	require.NoError(t, err)
	recsB, err := e.recs.List(ctxB, "")
	require.NoError(t, err)
	assert.Len(t, append(recsA, recsB...), 3)
}

func TestTransfer_PartialFailureAttemptsEverything(t *testing.T) {
	e := newEnv(t, envOptions{
		allowVisitorWrites: true,
		wrapDB:             func(db store.Database) store.Database { return failingInserts{db} },
	})
	seedVisitor(t, e, "v1", "One", "Two", "FAIL three", "Four", "Five")

	ctx, resp := e.register(t, "partial@example.com")
	report := e.transfer.Transfer(context.Background(), "v1", resp.User.ID)

	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 4, report.Transferred)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.Partial)

	recs, err := e.recs.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestTransfer_EmptyVisitor(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	_, resp := e.register(t, "empty@example.com")

	report := e.transfer.Transfer(context.Background(), "never-seen", resp.User.ID)
	assert.Equal(t, TransferReport{}, report)
}

func TestTransfer_ReusesExistingAccountPeople(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx, resp := e.register(t, "reuse@example.com")
	_, err := e.recs.Create(ctx, bookRequest("Existing", "ana"))
	require.NoError(t, err)

	seedVisitor(t, e, "v1", "Dune")
	report := e.transfer.Transfer(context.Background(), "v1", resp.User.ID)
	assert.Equal(t, 1, report.Transferred)

	people, err := e.recs.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "ana", people[0].Name)
}

func TestTransfer_InvalidatesAccountCache(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx, resp := e.register(t, "warm@example.com")

	// Warm the account's cache while it is empty.
	list, err := e.recs.List(ctx, "")
	require.NoError(t, err)
	require.Empty(t, list)
	_, _, ok := e.cache.Get(context.Background(), cache.Key{Scope: cache.UserScope(resp.User.ID), Group: cache.GroupRecommendations, Op: "list"})
	require.True(t, ok)

	seedVisitor(t, e, "v1", "Dune")
	e.transfer.Transfer(context.Background(), "v1", resp.User.ID)

	list, err = e.recs.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
