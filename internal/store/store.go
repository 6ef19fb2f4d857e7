// Package store defines the account database used for authenticated users.
//
// Every method that touches user content takes the owning user's ID and
// scopes its query by it. A row owned by someone else is reported as
// ErrNotFound and never read or modified.
package store

import (
	"context"
	"time"

	"github.com/recshelf/recshelf-server/internal/domain"
)

// Users persists accounts.
type Users interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	SetLastLogin(ctx context.Context, userID string, at time.Time) error
}

// Sessions persists refresh-token sessions.
type Sessions interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByRefreshHash(ctx context.Context, hash string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// People persists recommenders.
type People interface {
	ListPeople(ctx context.Context, ownerID string) ([]*domain.Person, error)
	GetPerson(ctx context.Context, ownerID, id string) (*domain.Person, error)
	// FindPersonByName matches on domain.FoldName.
	FindPersonByName(ctx context.Context, ownerID, name string) (*domain.Person, error)
	// CreatePerson returns ErrAlreadyExists when the owner already has a
	// person with the same folded name.
	CreatePerson(ctx context.Context, ownerID string, person *domain.Person) error
}

// RecommendationFilter narrows ListRecommendations. Zero values match everything.
type RecommendationFilter struct {
	Type domain.RecommendationType
}

// Recommendations persists recommendations.
type Recommendations interface {
	ListRecommendations(ctx context.Context, ownerID string, filter RecommendationFilter) ([]*domain.Recommendation, error)
	GetRecommendation(ctx context.Context, ownerID, id string) (*domain.Recommendation, error)
	// CreateRecommendation and UpdateRecommendation return ErrNotFound when
	// the recommender is not one of the owner's people.
	CreateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error
	UpdateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error
	DeleteRecommendation(ctx context.Context, ownerID, id string) error
}

// Categories persists custom categories.
type Categories interface {
	ListCategories(ctx context.Context, ownerID string) ([]*domain.CustomCategory, error)
	// CreateCategory returns ErrAlreadyExists when the owner already has the slug.
	CreateCategory(ctx context.Context, ownerID string, cat *domain.CustomCategory) error
}

// Database is the complete account store.
type Database interface {
	Users
	Sessions
	People
	Recommendations
	Categories

	Ping(ctx context.Context) error
	Close() error
}
