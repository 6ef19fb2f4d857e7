// Package visitor keeps the recommendations of unauthenticated visitors.
//
// Each visitor gets their own Store seeded with shared sample content.
// Samples are never modified: deleting one hides it and editing one stores a
// shadow copy under the same ID. Visitor additions live alongside the shadows
// and are what the transfer at registration copies into the new account.
package visitor

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
)

// State is the mutable part of a Store. It is what persisters save.
type State struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	People          []domain.Person         `json:"people"`
	Categories      []domain.CustomCategory `json:"categories"`
	Hidden          []string                `json:"hidden"`
}

// Store is one visitor's collection. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	samples      SampleSet
	sampleRecs   map[string]int
	samplePeople map[string]int

	recs       []domain.Recommendation
	people     []domain.Person
	categories []domain.CustomCategory
	hidden     map[string]struct{}

	// save, when set, is called with the new state after every mutation.
	// A failed save rolls the mutation back.
	save func(State) error
}

// NewStore creates a store seeded with samples.
func NewStore(samples SampleSet) *Store {
	s := &Store{
		samples:      samples,
		sampleRecs:   make(map[string]int, len(samples.Recommendations)),
		samplePeople: make(map[string]int, len(samples.People)),
		hidden:       make(map[string]struct{}),
	}
	for i, r := range samples.Recommendations {
		s.sampleRecs[r.ID] = i
	}
	for i, p := range samples.People {
		s.samplePeople[p.ID] = i
	}
	return s
}

// restore replaces the mutable state. Used when loading a persisted store.
func (s *Store) restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked(st)
}

func (s *Store) restoreLocked(st State) {
	s.recs = slices.Clone(st.Recommendations)
	s.people = slices.Clone(st.People)
	s.categories = slices.Clone(st.Categories)
	s.hidden = make(map[string]struct{}, len(st.Hidden))
	for _, id := range st.Hidden {
		s.hidden[id] = struct{}{}
	}
}

// Snapshot returns a copy of the mutable state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	hidden := make([]string, 0, len(s.hidden))
	for id := range s.hidden {
		hidden = append(hidden, id)
	}
	slices.Sort(hidden)
	return State{
		Recommendations: slices.Clone(s.recs),
		People:          slices.Clone(s.people),
		Categories:      slices.Clone(s.categories),
		Hidden:          hidden,
	}
}

// mutate runs fn under the write lock and persists the result.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prev State
	if s.save != nil {
		prev = s.stateLocked()
	}
	if err := fn(); err != nil {
		return err
	}
	if s.save != nil {
		if err := s.save(s.stateLocked()); err != nil {
			s.restoreLocked(prev)
			return fmt.Errorf("persist visitor store: %w", err)
		}
	}
	return nil
}

// List returns every visible recommendation, newest date first.
func (s *Store) List() []*domain.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Recommendation, 0, len(s.samples.Recommendations)+len(s.recs))
	for _, r := range s.samples.Recommendations {
		if s.isHiddenLocked(r.ID) || s.indexLocked(r.ID) >= 0 {
			continue
		}
		out = append(out, r.Clone())
	}
	for _, r := range s.recs {
		out = append(out, r.Clone())
	}

	slices.SortStableFunc(out, func(a, b *domain.Recommendation) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Get returns a visible recommendation by ID.
func (s *Store) Get(id string) (*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.recs[i].Clone(), nil
	}
	if i, ok := s.sampleRecs[id]; ok && !s.isHiddenLocked(id) {
		return s.samples.Recommendations[i].Clone(), nil
	}
	return nil, store.ErrNotFound
}

// Add stores a new visitor-authored recommendation. The recommender must
// already be known to this store.
func (s *Store) Add(rec *domain.Recommendation) error {
	return s.mutate(func() error {
		if _, isSample := s.sampleRecs[rec.ID]; isSample || s.indexLocked(rec.ID) >= 0 {
			return store.ErrAlreadyExists
		}
		person, ok := s.personLocked(rec.Recommender.ID)
		if !ok {
			return store.ErrNotFound.WithCause(fmt.Errorf("recommender %s", rec.Recommender.ID))
		}

		r := *rec
		r.Recommender = person
		r.Origin = domain.OriginVisitor
		if r.CreatedAt.IsZero() {
			r.InitTimestamps()
		}
		s.recs = append(s.recs, r)
		*rec = r
		return nil
	})
}

// Update replaces a visible recommendation. Editing a sample stores a
// shadow copy that keeps the sample's ID and origin.
func (s *Store) Update(rec *domain.Recommendation) error {
	return s.mutate(func() error {
		person, ok := s.personLocked(rec.Recommender.ID)
		if !ok {
			return store.ErrNotFound.WithCause(fmt.Errorf("recommender %s", rec.Recommender.ID))
		}

		r := *rec
		r.Recommender = person
		r.UpdatedAt = time.Now()

		if i := s.indexLocked(rec.ID); i >= 0 {
			r.Origin = s.recs[i].Origin
			r.CreatedAt = s.recs[i].CreatedAt
			s.recs[i] = r
			*rec = r
			return nil
		}

		i, isSample := s.sampleRecs[rec.ID]
		if !isSample || s.isHiddenLocked(rec.ID) {
			return store.ErrNotFound
		}
		r.Origin = domain.OriginSample
		r.CreatedAt = s.samples.Recommendations[i].CreatedAt
		s.recs = append(s.recs, r)
		*rec = r
		return nil
	})
}

// Remove deletes a visitor recommendation or hides a sample.
func (s *Store) Remove(id string) error {
	return s.mutate(func() error {
		_, isSample := s.sampleRecs[id]
		if i := s.indexLocked(id); i >= 0 {
			s.recs = slices.Delete(s.recs, i, i+1)
			if isSample {
				s.hidden[id] = struct{}{}
			}
			return nil
		}
		if !isSample || s.isHiddenLocked(id) {
			return store.ErrNotFound
		}
		s.hidden[id] = struct{}{}
		return nil
	})
}

// VisitorCount returns the number of visitor-authored recommendations.
func (s *Store) VisitorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.recs {
		if r.Origin == domain.OriginVisitor {
			n++
		}
	}
	return n
}

// ListPeople returns sample people followed by visitor-added people.
func (s *Store) ListPeople() []*domain.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Person, 0, len(s.samples.People)+len(s.people))
	for _, p := range s.samples.People {
		out = append(out, &p)
	}
	for _, p := range s.people {
		out = append(out, &p)
	}
	return out
}

// GetPerson returns a known person by ID.
func (s *Store) GetPerson(id string) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.personLocked(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// FindPersonByName matches on domain.FoldName.
func (s *Store) FindPersonByName(name string) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folded := domain.FoldName(name)
	for _, group := range [][]domain.Person{s.samples.People, s.people} {
		for _, p := range group {
			if domain.FoldName(p.Name) == folded {
				return &p, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

// AddPerson stores a new person.
func (s *Store) AddPerson(p *domain.Person) error {
	return s.mutate(func() error {
		if _, ok := s.personLocked(p.ID); ok {
			return store.ErrAlreadyExists
		}
		folded := domain.FoldName(p.Name)
		for _, group := range [][]domain.Person{s.samples.People, s.people} {
			for _, existing := range group {
				if domain.FoldName(existing.Name) == folded {
					return store.ErrAlreadyExists
				}
			}
		}
		s.people = append(s.people, *p)
		return nil
	})
}

// ListCategories returns custom categories in creation order.
func (s *Store) ListCategories() []*domain.CustomCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.CustomCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, &c)
	}
	return out
}

// AddCategory stores a custom category. A category whose slug is already
// present is rejected with store.ErrAlreadyExists.
func (s *Store) AddCategory(cat *domain.CustomCategory) error {
	return s.mutate(func() error {
		for _, c := range s.categories {
			if c.Type == cat.Type {
				return store.ErrAlreadyExists
			}
		}
		s.categories = append(s.categories, *cat)
		return nil
	})
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.recs, func(r domain.Recommendation) bool { return r.ID == id })
}

func (s *Store) isHiddenLocked(id string) bool {
	_, ok := s.hidden[id]
	return ok
}

func (s *Store) personLocked(id string) (domain.Person, bool) {
	if i, ok := s.samplePeople[id]; ok {
		return s.samples.People[i], true
	}
	for _, p := range s.people {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Person{}, false
}
