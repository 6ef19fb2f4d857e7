package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/recshelf/recshelf-server/internal/cache"
	"github.com/recshelf/recshelf-server/internal/color"
	"github.com/recshelf/recshelf-server/internal/domain"
	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/validation"
)

// RecommendationService validates requests and reads through the query
// cache on top of the storage facade.
type RecommendationService struct {
	storage      *storage.Facade
	cache        cache.Cache
	validator    *validation.Validator
	visitorLimit int
	logger       *slog.Logger
}

// NewRecommendationService creates a recommendation service. c may be nil
// to disable caching.
func NewRecommendationService(
	facade *storage.Facade,
	c cache.Cache,
	validator *validation.Validator,
	visitorLimit int,
	logger *slog.Logger,
) *RecommendationService {
	return &RecommendationService{
		storage:      facade,
		cache:        c,
		validator:    validator,
		visitorLimit: visitorLimit,
		logger:       logger,
	}
}

// RecommendationRequest is the body of create and update calls. A
// recommender is named either by RecommenderID or by RecommenderName.
type RecommendationRequest struct {
	Title           string                    `json:"title" validate:"required,max=300"`
	Type            domain.RecommendationType `json:"type" validate:"required,rectype"`
	RecommenderID   string                    `json:"recommender_id,omitempty" validate:"max=64"`
	RecommenderName string                    `json:"recommender_name,omitempty" validate:"required_without=RecommenderID,max=120"`
	Reason          string                    `json:"reason,omitempty" validate:"max=2000"`
	Source          string                    `json:"source,omitempty" validate:"max=300"`
	Date            string                    `json:"date,omitempty" validate:"omitempty,isodate"`
	IsCompleted     bool                      `json:"is_completed,omitempty"`
	CustomCategory  string                    `json:"custom_category,omitempty" validate:"max=80"`
}

// CategoryRequest is the body of a create-category call.
type CategoryRequest struct {
	Label string `json:"label" validate:"required,max=60"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Icon  string `json:"icon,omitempty" validate:"max=64"`
}

// VisitorStatus describes how close a visitor is to the suggested limit.
// The limit is advisory; writes past it still succeed.
type VisitorStatus struct {
	Mode         storage.Mode `json:"mode"`
	VisitorCount int          `json:"visitor_count"`
	Limit        int          `json:"limit"`
	LimitReached bool         `json:"limit_reached"`
}

// cacheScope returns the cache scope for caller. Anonymous callers share
// the read-only sample scope.
func cacheScope(caller storage.Caller) string {
	switch {
	case caller.Mode == storage.ModeAccount:
		return cache.UserScope(caller.ID)
	case caller.ID != "":
		return cache.VisitorScope(caller.ID)
	default:
		return "samples"
	}
}

func (s *RecommendationService) invalidate(ctx context.Context, caller storage.Caller, groups ...cache.Group) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, cacheScope(caller), groups...)
}

// List returns every recommendation, or only those of typ when it is set.
func (s *RecommendationService) List(ctx context.Context, typ domain.RecommendationType) ([]*domain.Recommendation, error) {
	if typ != "" && !typ.IsValid() {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"type": "must be one of: book movie tv recipe restaurant podcast other",
		})
	}

	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key{Scope: cacheScope(scoped.Caller()), Group: cache.GroupRecommendations, Op: "list"}
	if typ == "" {
		return cache.Cached(ctx, s.cache, key, scoped.List)
	}
	key.Op, key.Params = "by_type", []string{string(typ)}
	return cache.Cached(ctx, s.cache, key, func(ctx context.Context) ([]*domain.Recommendation, error) {
		return scoped.ListByType(ctx, typ)
	})
}

// Get returns one recommendation.
func (s *RecommendationService) Get(ctx context.Context, recID string) (*domain.Recommendation, error) {
	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.Key{Scope: cacheScope(scoped.Caller()), Group: cache.GroupRecommendations, Op: "get", Params: []string{recID}}
	return cache.Cached(ctx, s.cache, key, func(ctx context.Context) (*domain.Recommendation, error) {
		return scoped.GetByID(ctx, recID)
	})
}

func applyRequest(rec *domain.Recommendation, req RecommendationRequest) {
	rec.Title = strings.TrimSpace(req.Title)
	rec.Type = req.Type
	rec.Recommender = domain.Person{ID: req.RecommenderID, Name: req.RecommenderName}
	rec.Reason = req.Reason
	rec.Source = req.Source
	if req.Date != "" {
		rec.Date = req.Date
	}
	rec.IsCompleted = req.IsCompleted
	rec.CustomCategory = ""
	if req.Type == domain.TypeOther {
		rec.CustomCategory = strings.TrimSpace(req.CustomCategory)
	}
}

// Create adds a recommendation. Date defaults to today.
func (s *RecommendationService) Create(ctx context.Context, req RecommendationRequest) (*domain.Recommendation, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}

	rec := &domain.Recommendation{Date: domain.Today()}
	applyRequest(rec, req)
	if err := scoped.Add(ctx, rec); err != nil {
		return nil, err
	}

	// A new recommender may have been created alongside.
	s.invalidate(ctx, scoped.Caller(), cache.GroupRecommendations, cache.GroupPeople)

	s.logger.Info("recommendation created",
		"mode", scoped.Mode(),
		"recommendation_id", rec.ID,
		"type", rec.Type,
	)
	return rec, nil
}

// Update replaces the editable fields of a recommendation. An empty Date
// keeps the stored date.
func (s *RecommendationService) Update(ctx context.Context, recID string, req RecommendationRequest) (*domain.Recommendation, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := scoped.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}
	applyRequest(rec, req)
	if err := scoped.Update(ctx, rec); err != nil {
		return nil, err
	}

	s.invalidate(ctx, scoped.Caller(), cache.GroupRecommendations, cache.GroupPeople)
	return rec, nil
}

// ToggleComplete flips the completion flag.
func (s *RecommendationService) ToggleComplete(ctx context.Context, recID string) (*domain.Recommendation, error) {
	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := scoped.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}
	rec.IsCompleted = !rec.IsCompleted
	if err := scoped.Update(ctx, rec); err != nil {
		return nil, err
	}

	s.invalidate(ctx, scoped.Caller(), cache.GroupRecommendations)
	return rec, nil
}

// Delete removes a recommendation.
func (s *RecommendationService) Delete(ctx context.Context, recID string) error {
	scoped, err := s.storage.For(ctx)
	if err != nil {
		return err
	}
	if err := scoped.Delete(ctx, recID); err != nil {
		return err
	}
	s.invalidate(ctx, scoped.Caller(), cache.GroupRecommendations)
	return nil
}

// ListPeople returns every recommender the caller knows.
func (s *RecommendationService) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.Key{Scope: cacheScope(scoped.Caller()), Group: cache.GroupPeople, Op: "list"}
	return cache.Cached(ctx, s.cache, key, scoped.ListPeople)
}

// ListCategories returns the caller's custom categories.
func (s *RecommendationService) ListCategories(ctx context.Context) ([]*domain.CustomCategory, error) {
	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.Key{Scope: cacheScope(scoped.Caller()), Group: cache.GroupCategories, Op: "list"}
	return cache.Cached(ctx, s.cache, key, scoped.ListCategories)
}

// CreateCategory adds a custom category. Labels that slug to an existing
// category are rejected with CONFLICT. A category without a color gets one
// derived from its slug.
func (s *RecommendationService) CreateCategory(ctx context.Context, req CategoryRequest) (*domain.CustomCategory, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}

	cat := &domain.CustomCategory{
		Label: strings.TrimSpace(req.Label),
		Color: req.Color,
		Icon:  req.Icon,
	}
	if cat.Color == "" {
		cat.Color = color.ForKey(domain.CategorySlug(cat.Label))
	}
	if err := scoped.AddCategory(ctx, cat); err != nil {
		return nil, err
	}

	s.invalidate(ctx, scoped.Caller(), cache.GroupCategories)
	return cat, nil
}

// VisitorStatus reports the caller's mode and, for visitors, how many of
// their own recommendations they hold against the suggested limit.
func (s *RecommendationService) VisitorStatus(ctx context.Context) (*VisitorStatus, error) {
	scoped, err := s.storage.For(ctx)
	if err != nil {
		return nil, err
	}

	status := &VisitorStatus{Mode: scoped.Mode(), Limit: s.visitorLimit}
	if scoped.Mode() != storage.ModeVisitor {
		return status, nil
	}

	recs, err := scoped.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.Origin == domain.OriginVisitor {
			status.VisitorCount++
		}
	}
	status.LimitReached = status.VisitorCount >= s.visitorLimit
	return status, nil
}
