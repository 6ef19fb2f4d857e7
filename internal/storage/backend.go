package storage

import (
	"context"
	"slices"
	"time"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

// Backend is one place recommendations can live. Errors use the store
// sentinels; the facade maps them to domain errors.
type Backend interface {
	Mode() Mode

	List(ctx context.Context) ([]*domain.Recommendation, error)
	ListByType(ctx context.Context, t domain.RecommendationType) ([]*domain.Recommendation, error)
	Get(ctx context.Context, id string) (*domain.Recommendation, error)
	Add(ctx context.Context, rec *domain.Recommendation) error
	Update(ctx context.Context, rec *domain.Recommendation) error
	Delete(ctx context.Context, id string) error

	ListPeople(ctx context.Context) ([]*domain.Person, error)
	GetPerson(ctx context.Context, id string) (*domain.Person, error)
	FindPersonByName(ctx context.Context, name string) (*domain.Person, error)
	AddPerson(ctx context.Context, p *domain.Person) error

	ListCategories(ctx context.Context) ([]*domain.CustomCategory, error)
	AddCategory(ctx context.Context, cat *domain.CustomCategory) error
}

// remoteBackend serves an authenticated account. Every call is scoped by
// userID.
type remoteBackend struct {
	db     store.Database
	userID string
}

func (b *remoteBackend) Mode() Mode { return ModeAccount }

func (b *remoteBackend) List(ctx context.Context) ([]*domain.Recommendation, error) {
	return b.db.ListRecommendations(ctx, b.userID, store.RecommendationFilter{})
}

func (b *remoteBackend) ListByType(ctx context.Context, t domain.RecommendationType) ([]*domain.Recommendation, error) {
	return b.db.ListRecommendations(ctx, b.userID, store.RecommendationFilter{Type: t})
}

func (b *remoteBackend) Get(ctx context.Context, id string) (*domain.Recommendation, error) {
	return b.db.GetRecommendation(ctx, b.userID, id)
}

func (b *remoteBackend) Add(ctx context.Context, rec *domain.Recommendation) error {
	rec.Origin = domain.OriginAccount
	rec.InitTimestamps()
	return b.db.CreateRecommendation(ctx, b.userID, rec)
}

func (b *remoteBackend) Update(ctx context.Context, rec *domain.Recommendation) error {
	rec.UpdatedAt = time.Now()
	return b.db.UpdateRecommendation(ctx, b.userID, rec)
}

func (b *remoteBackend) Delete(ctx context.Context, id string) error {
	return b.db.DeleteRecommendation(ctx, b.userID, id)
}

func (b *remoteBackend) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	return b.db.ListPeople(ctx, b.userID)
}

func (b *remoteBackend) GetPerson(ctx context.Context, id string) (*domain.Person, error) {
	return b.db.GetPerson(ctx, b.userID, id)
}

func (b *remoteBackend) FindPersonByName(ctx context.Context, name string) (*domain.Person, error) {
	return b.db.FindPersonByName(ctx, b.userID, name)
}

func (b *remoteBackend) AddPerson(ctx context.Context, p *domain.Person) error {
	return b.db.CreatePerson(ctx, b.userID, p)
}

func (b *remoteBackend) ListCategories(ctx context.Context) ([]*domain.CustomCategory, error) {
	return b.db.ListCategories(ctx, b.userID)
}

func (b *remoteBackend) AddCategory(ctx context.Context, cat *domain.CustomCategory) error {
	return b.db.CreateCategory(ctx, b.userID, cat)
}

// visitorBackend serves one visitor's in-process store.
type visitorBackend struct {
	store *visitor.Store
}

func (b *visitorBackend) Mode() Mode { return ModeVisitor }

func (b *visitorBackend) List(context.Context) ([]*domain.Recommendation, error) {
	return b.store.List(), nil
}

func (b *visitorBackend) ListByType(_ context.Context, t domain.RecommendationType) ([]*domain.Recommendation, error) {
	return slices.DeleteFunc(b.store.List(), func(r *domain.Recommendation) bool {
		return r.Type != t
	}), nil
}

func (b *visitorBackend) Get(_ context.Context, id string) (*domain.Recommendation, error) {
	return b.store.Get(id)
}

func (b *visitorBackend) Add(_ context.Context, rec *domain.Recommendation) error {
	return b.store.Add(rec)
}

func (b *visitorBackend) Update(_ context.Context, rec *domain.Recommendation) error {
	return b.store.Update(rec)
}

func (b *visitorBackend) Delete(_ context.Context, id string) error {
	return b.store.Remove(id)
}

func (b *visitorBackend) ListPeople(context.Context) ([]*domain.Person, error) {
	return b.store.ListPeople(), nil
}

func (b *visitorBackend) GetPerson(_ context.Context, id string) (*domain.Person, error) {
	return b.store.GetPerson(id)
}

func (b *visitorBackend) FindPersonByName(_ context.Context, name string) (*domain.Person, error) {
	return b.store.FindPersonByName(name)
}

func (b *visitorBackend) AddPerson(_ context.Context, p *domain.Person) error {
	return b.store.AddPerson(p)
}

func (b *visitorBackend) ListCategories(context.Context) ([]*domain.CustomCategory, error) {
	return b.store.ListCategories(), nil
}

func (b *visitorBackend) AddCategory(_ context.Context, cat *domain.CustomCategory) error {
	return b.store.AddCategory(cat)
}
