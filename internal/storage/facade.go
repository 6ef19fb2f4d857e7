// Package storage is the single entry point for recommendation CRUD.
//
// Each call asks the session oracle who the caller is and routes to the
// account database for authenticated users or to the caller's visitor
// store otherwise. Callers never see which backend served them except
// through Mode.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recshelf/recshelf-server/internal/domain"
	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/id"
	"github.com/recshelf/recshelf-server/internal/metrics"
	"github.com/recshelf/recshelf-server/internal/store"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

// Mode says which backend serves a caller.
type Mode string

const (
	ModeAccount Mode = "account"
	ModeVisitor Mode = "visitor"
)

// Identity reports the authenticated user behind a request.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// Options are the process-wide storage switches.
type Options struct {
	// AllowVisitorWrites lets unauthenticated callers change their visitor store.
	AllowVisitorWrites bool
	// DevReadLatency delays every read. Zero disables it.
	DevReadLatency time.Duration
}

// Facade routes CRUD calls to the right backend.
type Facade struct {
	db       store.Database
	visitors *visitor.Registry
	identity Identity
	opts     Options
	logger   *slog.Logger
}

// New creates a facade.
func New(db store.Database, visitors *visitor.Registry, identity Identity, opts Options, logger *slog.Logger) *Facade {
	return &Facade{
		db:       db,
		visitors: visitors,
		identity: identity,
		opts:     opts,
		logger:   logger,
	}
}

// Caller identifies whose data a Scoped handle serves. ID is the user ID in
// account mode and the visitor ID in visitor mode; it is empty for an
// anonymous caller without a visitor ID.
type Caller struct {
	Mode Mode
	ID   string
}

// Scoped is a backend bound to one caller. Obtain one with Facade.For and
// use it for the rest of the request.
type Scoped struct {
	f        *Facade
	backend  Backend
	caller   Caller
	writable bool
}

// For resolves the caller once and returns a handle bound to their backend.
func (f *Facade) For(ctx context.Context) (*Scoped, error) {
	if userID, ok := f.identity.CurrentUserID(ctx); ok {
		return &Scoped{
			f:        f,
			backend:  &remoteBackend{db: f.db, userID: userID},
			caller:   Caller{Mode: ModeAccount, ID: userID},
			writable: true,
		}, nil
	}

	visitorID, ok := visitor.IDFromContext(ctx)
	if !ok {
		return &Scoped{
			f:       f,
			backend: &visitorBackend{store: f.visitors.Samples()},
			caller:  Caller{Mode: ModeVisitor},
		}, nil
	}

	st, err := f.visitors.Get(ctx, visitorID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "visitor storage unavailable")
	}
	return &Scoped{
		f:        f,
		backend:  &visitorBackend{store: st},
		caller:   Caller{Mode: ModeVisitor, ID: visitorID},
		writable: f.opts.AllowVisitorWrites,
	}, nil
}

// Caller returns who the handle serves.
func (s *Scoped) Caller() Caller { return s.caller }

// Mode returns which backend serves the handle.
func (s *Scoped) Mode() Mode { return s.caller.Mode }

func (s *Scoped) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStorageOp(string(s.caller.Mode), op, time.Since(start), err)
	if err != nil && domainerrors.CodeOf(err) == domainerrors.CodeOperationFailed {
		s.f.logger.Warn("storage operation failed", "backend", s.caller.Mode, "op", op, "error", err)
	}
	return err
}

// pause applies the development read latency.
func (s *Scoped) pause(ctx context.Context) error {
	d := s.f.opts.DevReadLatency
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Scoped) ensureWritable() error {
	if s.writable {
		return nil
	}
	if s.caller.ID == "" && s.f.opts.AllowVisitorWrites {
		return domainerrors.Unauthorized("a visitor id is required to make changes")
	}
	return domainerrors.Unauthorized("sign in to make changes")
}

// translate maps store sentinels to domain errors. Any other account
// database failure becomes OPERATION_FAILED.
func (s *Scoped) translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflictf("%s already exists", what).WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case s.caller.Mode == ModeAccount:
		return domainerrors.OperationFailed(err, fmt.Sprintf("could not reach account storage for %s", what))
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "visitor storage failed")
	}
}

// List returns every recommendation, newest date first.
func (s *Scoped) List(ctx context.Context) ([]*domain.Recommendation, error) {
	var recs []*domain.Recommendation
	err := s.observe("list", func() error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		var err error
		recs, err = s.backend.List(ctx)
		return s.translate(err, "recommendations")
	})
	return recs, err
}

// ListByType returns the recommendations of one type.
func (s *Scoped) ListByType(ctx context.Context, t domain.RecommendationType) ([]*domain.Recommendation, error) {
	var recs []*domain.Recommendation
	err := s.observe("list_by_type", func() error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		var err error
		recs, err = s.backend.ListByType(ctx, t)
		return s.translate(err, "recommendations")
	})
	return recs, err
}

// GetByID returns one recommendation.
func (s *Scoped) GetByID(ctx context.Context, recID string) (*domain.Recommendation, error) {
	var rec *domain.Recommendation
	err := s.observe("get", func() error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		var err error
		rec, err = s.backend.Get(ctx, recID)
		return s.translate(err, "recommendation")
	})
	return rec, err
}

// Add stores rec, resolving its recommender first. rec.ID is assigned when
// empty. On success rec holds the stored values.
func (s *Scoped) Add(ctx context.Context, rec *domain.Recommendation) error {
	return s.observe("add", func() error {
		if err := s.ensureWritable(); err != nil {
			return err
		}
		person, err := s.resolveRecommender(ctx, rec.Recommender)
		if err != nil {
			return err
		}
		rec.Recommender = *person
		if rec.ID == "" {
			if rec.ID, err = id.Generate(id.PrefixRecommendation); err != nil {
				return fmt.Errorf("generate recommendation ID: %w", err)
			}
		}
		return s.translate(s.backend.Add(ctx, rec), "recommendation")
	})
}

// Update replaces an existing recommendation.
func (s *Scoped) Update(ctx context.Context, rec *domain.Recommendation) error {
	return s.observe("update", func() error {
		if err := s.ensureWritable(); err != nil {
			return err
		}
		// A recommendation outside this scope must leave no trace, not
		// even a newly created recommender.
		if _, err := s.backend.Get(ctx, rec.ID); err != nil {
			return s.translate(err, "recommendation")
		}
		person, err := s.resolveRecommender(ctx, rec.Recommender)
		if err != nil {
			return err
		}
		rec.Recommender = *person
		return s.translate(s.backend.Update(ctx, rec), "recommendation")
	})
}

// Delete removes a recommendation. In visitor mode a sample is hidden.
func (s *Scoped) Delete(ctx context.Context, recID string) error {
	return s.observe("delete", func() error {
		if err := s.ensureWritable(); err != nil {
			return err
		}
		return s.translate(s.backend.Delete(ctx, recID), "recommendation")
	})
}

// ListPeople returns every known recommender.
func (s *Scoped) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	var people []*domain.Person
	err := s.observe("list_people", func() error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		var err error
		people, err = s.backend.ListPeople(ctx)
		return s.translate(err, "people")
	})
	return people, err
}

// ListCategories returns the custom categories.
func (s *Scoped) ListCategories(ctx context.Context) ([]*domain.CustomCategory, error) {
	var cats []*domain.CustomCategory
	err := s.observe("list_categories", func() error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		var err error
		cats, err = s.backend.ListCategories(ctx)
		return s.translate(err, "categories")
	})
	return cats, err
}

// AddCategory stores a custom category. Its Type is derived from Label and
// must not already exist.
func (s *Scoped) AddCategory(ctx context.Context, cat *domain.CustomCategory) error {
	return s.observe("add_category", func() error {
		if err := s.ensureWritable(); err != nil {
			return err
		}
		cat.Type = domain.CategorySlug(cat.Label)
		if cat.Type == "" {
			return domainerrors.Validation("category label is required")
		}
		if cat.ID == "" {
			var err error
			if cat.ID, err = id.Generate(id.PrefixCategory); err != nil {
				return fmt.Errorf("generate category ID: %w", err)
			}
		}
		if cat.CreatedAt.IsZero() {
			cat.CreatedAt = time.Now()
		}
		return s.translate(s.backend.AddCategory(ctx, cat), fmt.Sprintf("category %q", cat.Type))
	})
}

// EnsurePerson returns the person ref names, creating them when needed.
func (s *Scoped) EnsurePerson(ctx context.Context, ref domain.Person) (*domain.Person, error) {
	var p *domain.Person
	err := s.observe("ensure_person", func() error {
		if err := s.ensureWritable(); err != nil {
			return err
		}
		var err error
		p, err = s.resolveRecommender(ctx, ref)
		return err
	})
	return p, err
}

// resolveRecommender finds the person a recommendation names. A known ID
// wins; otherwise the name is matched case-insensitively and a new person
// is created when nobody matches.
func (s *Scoped) resolveRecommender(ctx context.Context, ref domain.Person) (*domain.Person, error) {
	if ref.ID != "" {
		p, err := s.backend.GetPerson(ctx, ref.ID)
		return p, s.translate(err, "recommender")
	}

	name := strings.Join(strings.Fields(ref.Name), " ")
	if name == "" {
		return nil, domainerrors.Validation("recommender is required")
	}

	p, err := s.backend.FindPersonByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, s.translate(err, "recommender")
	}

	personID, err := id.Generate(id.PrefixPerson)
	if err != nil {
		return nil, fmt.Errorf("generate person ID: %w", err)
	}
	p = &domain.Person{ID: personID, Name: name, Avatar: ref.Avatar}
	err = s.backend.AddPerson(ctx, p)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Created concurrently under the same folded name.
		p, err = s.backend.FindPersonByName(ctx, name)
	}
	if err != nil {
		return nil, s.translate(err, "recommender")
	}
	return p, nil
}

// The methods below resolve the caller on every call. Prefer For when a
// request makes several calls.

// Mode reports which backend would serve ctx.
func (f *Facade) Mode(ctx context.Context) Mode {
	if _, ok := f.identity.CurrentUserID(ctx); ok {
		return ModeAccount
	}
	return ModeVisitor
}

func (f *Facade) List(ctx context.Context) ([]*domain.Recommendation, error) {
	s, err := f.For(ctx)
	if err != nil {
		return nil, err
	}
	return s.List(ctx)
}

func (f *Facade) ListByType(ctx context.Context, t domain.RecommendationType) ([]*domain.Recommendation, error) {
	s, err := f.For(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListByType(ctx, t)
}

func (f *Facade) GetByID(ctx context.Context, recID string) (*domain.Recommendation, error) {
	s, err := f.For(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, recID)
}

func (f *Facade) Add(ctx context.Context, rec *domain.Recommendation) error {
	s, err := f.For(ctx)
	if err != nil {
		return err
	}
	return s.Add(ctx, rec)
}

func (f *Facade) Update(ctx context.Context, rec *domain.Recommendation) error {
	s, err := f.For(ctx)
	if err != nil {
		return err
	}
	return s.Update(ctx, rec)
}

func (f *Facade) Delete(ctx context.Context, recID string) error {
	s, err := f.For(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, recID)
}

func (f *Facade) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	s, err := f.For(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListPeople(ctx)
}

func (f *Facade) ListCategories(ctx context.Context) ([]*domain.CustomCategory, error) {
	s, err := f.For(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListCategories(ctx)
}

func (f *Facade) AddCategory(ctx context.Context, cat *domain.CustomCategory) error {
	s, err := f.For(ctx)
	if err != nil {
		return err
	}
	return s.AddCategory(ctx, cat)
}

// Account returns a handle on userID's account data without consulting
// the oracle. The transfer at registration uses it to write into the
// account it just created.
func (f *Facade) Account(userID string) *Scoped {
	return &Scoped{
		f:        f,
		backend:  &remoteBackend{db: f.db, userID: userID},
		caller:   Caller{Mode: ModeAccount, ID: userID},
		writable: true,
	}
}
