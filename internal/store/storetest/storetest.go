// Package storetest holds the behaviour every store.Database implementation
// must share. Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/id"
	"github.com/recshelf/recshelf-server/internal/store"
)

// Run exercises db against the store contract. db must be empty.
func Run(t *testing.T, db store.Database) {
	t.Helper()

	t.Run("Users", func(t *testing.T) { testUsers(t, db) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, db) })
	t.Run("People", func(t *testing.T) { testPeople(t, db) })
	t.Run("Recommendations", func(t *testing.T) { testRecommendations(t, db) })
	t.Run("OwnerIsolation", func(t *testing.T) { testOwnerIsolation(t, db) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, db) })
}

// NewUser inserts a user with a unique email and returns it.
func NewUser(t *testing.T, db store.Database) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           id.MustGenerate(id.PrefixUser),
		PasswordHash: "hash",
		DisplayName:  "Test User",
	}
	u.Email = u.ID + "@Example.com"
	u.InitTimestamps()
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

// NewPerson inserts a person owned by ownerID.
func NewPerson(t *testing.T, db store.Database, ownerID, name string) *domain.Person {
	t.Helper()
	p := &domain.Person{ID: id.MustGenerate(id.PrefixPerson), Name: name}
	require.NoError(t, db.CreatePerson(context.Background(), ownerID, p))
	return p
}

// NewRecommendation builds (but does not insert) a valid recommendation.
func NewRecommendation(title string, typ domain.RecommendationType, by *domain.Person) *domain.Recommendation {
	r := &domain.Recommendation{
		ID:          id.MustGenerate(id.PrefixRecommendation),
		Title:       title,
		Type:        typ,
		Recommender: *by,
		Date:        "2024-05-01",
		Origin:      domain.OriginAccount,
	}
	r.InitTimestamps()
	return r
}

func testUsers(t *testing.T, db store.Database) {
	ctx := context.Background()
	u := NewUser(t, db)

	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	byEmail, err := db.GetUserByEmail(ctx, "  "+u.ID+"@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	dup := *u
	dup.ID = id.MustGenerate(id.PrefixUser)
	assert.ErrorIs(t, db.CreateUser(ctx, &dup), store.ErrAlreadyExists)

	_, err = db.GetUser(ctx, "user-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	now := time.Now().Truncate(time.Millisecond)
	require.NoError(t, db.SetLastLogin(ctx, u.ID, now))
	got, err = db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, now.Equal(got.LastLoginAt), "last login %v != %v", got.LastLoginAt, now)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, users)
}

func testSessions(t *testing.T, db store.Database) {
	ctx := context.Background()
	u := NewUser(t, db)
	now := time.Now()

	live := &domain.Session{
		ID: id.MustGenerate(id.PrefixSession), UserID: u.ID, RefreshTokenHash: "live-hash",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now, LastSeenAt: now, UserAgent: "test",
	}
	expired := &domain.Session{
		ID: id.MustGenerate(id.PrefixSession), UserID: u.ID, RefreshTokenHash: "old-hash",
		ExpiresAt: now.Add(-time.Hour), CreatedAt: now, LastSeenAt: now,
	}
	require.NoError(t, db.CreateSession(ctx, live))
	require.NoError(t, db.CreateSession(ctx, expired))

	got, err := db.GetSessionByRefreshHash(ctx, "live-hash")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.Equal(t, "test", got.UserAgent)

	n, err := db.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = db.GetSessionByRefreshHash(ctx, "old-hash")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, db.DeleteSession(ctx, live.ID))
	assert.ErrorIs(t, db.DeleteSession(ctx, live.ID), store.ErrNotFound)
}

func testPeople(t *testing.T, db store.Database) {
	ctx := context.Background()
	u := NewUser(t, db)

	ana := NewPerson(t, db, u.ID, "Ana Lucia")
	NewPerson(t, db, u.ID, "Bruno")

	found, err := db.FindPersonByName(ctx, u.ID, "  ana   LUCIA")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, found.ID)

	dup := &domain.Person{ID: id.MustGenerate(id.PrefixPerson), Name: "ANA LUCIA"}
	assert.ErrorIs(t, db.CreatePerson(ctx, u.ID, dup), store.ErrAlreadyExists)

	people, err := db.ListPeople(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Ana Lucia", people[0].Name)

	_, err = db.FindPersonByName(ctx, u.ID, "Nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRecommendations(t *testing.T, db store.Database) {
	ctx := context.Background()
	u := NewUser(t, db)
	ana := NewPerson(t, db, u.ID, "Ana")

	book := NewRecommendation("Piranesi", domain.TypeBook, ana)
	book.Reason = "You'd love the house"
	movie := NewRecommendation("Arrival", domain.TypeMovie, ana)
	movie.Date = "2024-06-01"
	require.NoError(t, db.CreateRecommendation(ctx, u.ID, book))
	require.NoError(t, db.CreateRecommendation(ctx, u.ID, movie))

	all, err := db.ListRecommendations(ctx, u.ID, store.RecommendationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, movie.ID, all[0].ID, "newest date first")

	books, err := db.ListRecommendations(ctx, u.ID, store.RecommendationFilter{Type: domain.TypeBook})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Ana", books[0].Recommender.Name)
	assert.Equal(t, "You'd love the house", books[0].Reason)

	book.IsCompleted = true
	book.Title = "Piranesi (2020)"
	book.Touch()
	require.NoError(t, db.UpdateRecommendation(ctx, u.ID, book))

	got, err := db.GetRecommendation(ctx, u.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, "Piranesi (2020)", got.Title)
	assert.Equal(t, domain.OriginAccount, got.Origin)

	require.NoError(t, db.DeleteRecommendation(ctx, u.ID, book.ID))
	_, err = db.GetRecommendation(ctx, u.ID, book.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, db.DeleteRecommendation(ctx, u.ID, book.ID), store.ErrNotFound)

	empty, err := db.ListRecommendations(ctx, NewUser(t, db).ID, store.RecommendationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testOwnerIsolation(t *testing.T, db store.Database) {
	ctx := context.Background()
	owner := NewUser(t, db)
	other := NewUser(t, db)
	ana := NewPerson(t, db, owner.ID, "Ana")
	otherPerson := NewPerson(t, db, other.ID, "Zoe")

	rec := NewRecommendation("Severance", domain.TypeTV, ana)
	require.NoError(t, db.CreateRecommendation(ctx, owner.ID, rec))

	_, err := db.GetRecommendation(ctx, other.ID, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	hijack := *rec
	hijack.Title = "changed"
	assert.ErrorIs(t, db.UpdateRecommendation(ctx, other.ID, &hijack), store.ErrNotFound)
	assert.ErrorIs(t, db.DeleteRecommendation(ctx, other.ID, rec.ID), store.ErrNotFound)

	got, err := db.GetRecommendation(ctx, owner.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Severance", got.Title)

	// A recommender must belong to the same owner.
	foreign := NewRecommendation("Borrowed", domain.TypeBook, otherPerson)
	assert.ErrorIs(t, db.CreateRecommendation(ctx, owner.ID, foreign), store.ErrNotFound)

	_, err = db.GetPerson(ctx, owner.ID, otherPerson.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	otherRecs, err := db.ListRecommendations(ctx, other.ID, store.RecommendationFilter{})
	require.NoError(t, err)
	assert.Empty(t, otherRecs)
}

func testCategories(t *testing.T, db store.Database) {
	ctx := context.Background()
	u := NewUser(t, db)
	other := NewUser(t, db)

	cat := &domain.CustomCategory{
		ID: id.MustGenerate(id.PrefixCategory), Label: "Board Games",
		Type: domain.CategorySlug("Board Games"), Color: "#aa3366", CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateCategory(ctx, u.ID, cat))

	dup := *cat
	dup.ID = id.MustGenerate(id.PrefixCategory)
	dup.Label = "board   games"
	assert.ErrorIs(t, db.CreateCategory(ctx, u.ID, &dup), store.ErrAlreadyExists)

	// Slugs are unique per owner, not globally.
	require.NoError(t, db.CreateCategory(ctx, other.ID, &dup))

	cats, err := db.ListCategories(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "board-games", cats[0].Type)
	assert.Equal(t, "#aa3366", cats[0].Color)
}
