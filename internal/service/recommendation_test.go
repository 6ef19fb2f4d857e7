package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/color"
	"github.com/recshelf/recshelf-server/internal/domain"
	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/storage"
)

func bookRequest(title, by string) RecommendationRequest {
	return RecommendationRequest{Title: title, Type: domain.TypeBook, RecommenderName: by}
}

func TestRecommendationService_CreateValidation(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx := visitorContext("v1")

	tests := []struct {
		name  string
		req   RecommendationRequest
		field string
	}{
		{"missing title", RecommendationRequest{Type: domain.TypeBook, RecommenderName: "Ana"}, "title"},
		{"unknown type", RecommendationRequest{Title: "X", Type: "vinyl", RecommenderName: "Ana"}, "type"},
		{"bad date", RecommendationRequest{Title: "X", Type: domain.TypeBook, RecommenderName: "Ana", Date: "01/02/2024"}, "date"},
		{"no recommender", RecommendationRequest{Title: "X", Type: domain.TypeBook}, "recommender_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.recs.Create(ctx, tt.req)
			require.Error(t, err)

			var de *domainerrors.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domainerrors.CodeValidation, de.Code)
			assert.Contains(t, de.Details, tt.field)
		})
	}
}

func TestRecommendationService_CreateDefaultsDateToToday(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})

	rec, err := e.recs.Create(visitorContext("v1"), bookRequest("Dune", "Ana"))
	require.NoError(t, err)
	assert.Equal(t, domain.Today(), rec.Date)
	assert.Equal(t, domain.OriginVisitor, rec.Origin)
}

func TestRecommendationService_CustomCategoryOnlyForOther(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx := visitorContext("v1")

	book := bookRequest("Dune", "Ana")
	book.CustomCategory = "wine"
	rec, err := e.recs.Create(ctx, book)
	require.NoError(t, err)
	assert.Empty(t, rec.CustomCategory)

	other := RecommendationRequest{Title: "Barolo", Type: domain.TypeOther, RecommenderName: "Ana", CustomCategory: " wine "}
	rec, err = e.recs.Create(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "wine", rec.CustomCategory)
}

func TestRecommendationService_ListIsCachedAndInvalidatedOnWrite(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx, _ := e.register(t, "cache@example.com")

	list, err := e.recs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	rec, err := e.recs.Create(ctx, bookRequest("Dune", "Ana"))
	require.NoError(t, err)

	list, err = e.recs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	books, err := e.recs.List(ctx, domain.TypeBook)
	require.NoError(t, err)
	require.Len(t, books, 1)

	people, err := e.recs.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)

	toggled, err := e.recs.ToggleComplete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)

	got, err := e.recs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted, "toggle invalidates cached reads")

	require.NoError(t, e.recs.Delete(ctx, rec.ID))
	list, err = e.recs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecommendationService_ListRejectsUnknownType(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})

	_, err := e.recs.List(visitorContext("v1"), "vinyl")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestRecommendationService_UpdateKeepsDateWhenOmitted(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx, _ := e.register(t, "update@example.com")

	req := bookRequest("Dune", "Ana")
	req.Date = "2023-12-24"
	rec, err := e.recs.Create(ctx, req)
	require.NoError(t, err)

	updated, err := e.recs.Update(ctx, rec.ID, RecommendationRequest{
		Title:           "Dune Messiah",
		Type:            domain.TypeBook,
		RecommenderName: "Bruno",
		Reason:          "Sequel",
	})
	require.NoError(t, err)
	assert.Equal(t, "2023-12-24", updated.Date)
	assert.Equal(t, "Bruno", updated.Recommender.Name)

	people, err := e.recs.ListPeople(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 2)
}

func TestRecommendationService_UpdateOtherUsersRecommendation(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctxA, _ := e.register(t, "a@example.com")
	ctxB, _ := e.register(t, "b@example.com")

	rec, err := e.recs.Create(ctxA, bookRequest("Dune", "Ana"))
	require.NoError(t, err)

	_, err = e.recs.Update(ctxB, rec.ID, bookRequest("Hijacked", "Mallory"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	_, err = e.recs.ToggleComplete(ctxB, rec.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	got, err := e.recs.Get(ctxA, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.False(t, got.IsCompleted)
}

func TestRecommendationService_Categories(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx := visitorContext("v1")

	cat, err := e.recs.CreateCategory(ctx, CategoryRequest{Label: "Board Games", Color: "#336699"})
	require.NoError(t, err)
	assert.Equal(t, "board-games", cat.Type)

	assert.Equal(t, "#336699", cat.Color)

	_, err = e.recs.CreateCategory(ctx, CategoryRequest{Label: "board games"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	plain, err := e.recs.CreateCategory(ctx, CategoryRequest{Label: "Tea"})
	require.NoError(t, err)
	assert.Equal(t, color.ForKey("tea"), plain.Color)

	_, err = e.recs.CreateCategory(ctx, CategoryRequest{Label: "Wine", Color: "blue"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	cats, err := e.recs.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
}

func TestRecommendationService_VisitorStatus(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})
	ctx := visitorContext("v1")

	status, err := e.recs.VisitorStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, &VisitorStatus{Mode: storage.ModeVisitor, Limit: 15}, status)

	for i := range 15 {
		_, err := e.recs.Create(ctx, bookRequest("Book "+string(rune('A'+i)), "Ana"))
		require.NoError(t, err)
	}
	status, err = e.recs.VisitorStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, status.VisitorCount)
	assert.True(t, status.LimitReached)

	// The limit is advisory.
	_, err = e.recs.Create(ctx, bookRequest("One more", "Ana"))
	require.NoError(t, err)

	accountCtx, _ := e.register(t, "status@example.com")
	status, err = e.recs.VisitorStatus(accountCtx)
	require.NoError(t, err)
	assert.Equal(t, storage.ModeAccount, status.Mode)
	assert.Zero(t, status.VisitorCount)
}

func TestRecommendationService_AnonymousReadsSamples(t *testing.T) {
	e := newEnv(t, envOptions{allowVisitorWrites: true})

	list, err := e.recs.List(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	_, err = e.recs.Create(context.Background(), bookRequest("Dune", "Ana"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}
