package visitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/recshelf/recshelf-server/internal/metrics"
)

// ErrClaimed is returned by Take while another caller holds the visitor's
// store.
var ErrClaimed = errors.New("visitor store already claimed")

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry hands out one Store per visitor ID. With a Persister, stores are
// loaded on first use and written through on every change; without one
// they last until they go idle.
type Registry struct {
	samples   SampleSet
	persister Persister
	logger    *slog.Logger
	idleTTL   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	stores  map[string]*entry
	claimed map[string]struct{}

	done     chan struct{}
	stopOnce sync.Once
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL drops stores unused for d. Zero keeps them until Discard.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// NewRegistry creates a registry. persister may be nil. Call Close to stop
// idle eviction.
func NewRegistry(samples SampleSet, persister Persister, logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		samples:   samples,
		persister: persister,
		logger:    logger,
		now:       time.Now,
		stores:    make(map[string]*entry),
		claimed:   make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.idleTTL > 0 {
		go r.evictLoop(min(r.idleTTL, time.Minute))
	}
	return r
}

// Get returns the visitor's store, creating it on first use.
func (r *Registry) Get(ctx context.Context, visitorID string) (*Store, error) {
	if s, ok := r.lookup(visitorID); ok {
		return s, nil
	}

	// Loading happens unlocked so one slow read never stalls other visitors.
	s, err := r.load(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[visitorID]; ok {
		e.lastSeen = r.now()
		return e.store, nil
	}
	r.stores[visitorID] = &entry{store: s, lastSeen: r.now()}
	metrics.VisitorStores.Inc()
	r.logger.Debug("visitor store created", "visitor_id", visitorID)
	return s, nil
}

func (r *Registry) lookup(visitorID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[visitorID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.store, true
}

func (r *Registry) load(ctx context.Context, visitorID string) (*Store, error) {
	s := NewStore(r.samples)
	if r.persister == nil {
		return s, nil
	}

	st, err := r.persister.Load(ctx, visitorID)
	if err != nil {
		return nil, fmt.Errorf("load visitor %s: %w", visitorID, err)
	}
	if st != nil {
		s.restore(*st)
	}
	s.save = func(st State) error {
		// Saves outlive the request that triggered them.
		return r.persister.Save(context.WithoutCancel(ctx), visitorID, st)
	}
	return s, nil
}

// Take claims the visitor's store for a one-time consumer and removes it
// from the registry. Until Discard or Release, a second Take for the same
// visitor fails with ErrClaimed.
func (r *Registry) Take(ctx context.Context, visitorID string) (*Store, error) {
	r.mu.Lock()
	if _, busy := r.claimed[visitorID]; busy {
		r.mu.Unlock()
		return nil, ErrClaimed
	}
	r.claimed[visitorID] = struct{}{}
	e, ok := r.stores[visitorID]
	if ok {
		r.remove(visitorID)
	}
	r.mu.Unlock()

	if ok {
		return e.store, nil
	}
	s, err := r.load(ctx, visitorID)
	if err != nil {
		r.Release(visitorID)
		return nil, err
	}
	return s, nil
}

// Release gives up a claim made by Take without discarding anything.
func (r *Registry) Release(visitorID string) {
	r.mu.Lock()
	delete(r.claimed, visitorID)
	r.mu.Unlock()
}

// remove drops visitorID's live store. r.mu must be held.
func (r *Registry) remove(visitorID string) {
	if _, ok := r.stores[visitorID]; ok {
		delete(r.stores, visitorID)
		metrics.VisitorStores.Dec()
	}
}

// Samples returns a read-only store holding only the sample content,
// for callers without a visitor ID.
func (r *Registry) Samples() *Store {
	return NewStore(r.samples)
}

// Discard drops the visitor's store, any claim on it and anything
// persisted for it.
func (r *Registry) Discard(ctx context.Context, visitorID string) error {
	r.mu.Lock()
	r.remove(visitorID)
	r.mu.Unlock()

	if r.persister != nil {
		if err := r.persister.Delete(ctx, visitorID); err != nil {
			r.Release(visitorID)
			return fmt.Errorf("delete visitor %s: %w", visitorID, err)
		}
	}
	r.Release(visitorID)
	r.logger.Debug("visitor store discarded", "visitor_id", visitorID)
	return nil
}

// Len returns the number of stores held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// IDs returns every visitor with a live or persisted store.
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if r.persister != nil {
		persisted, err := r.persister.List(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, persisted...)
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// evictIdle drops stores not used within the idle TTL. Persisted state
// stays on disk.
func (r *Registry) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for visitorID, e := range r.stores {
		if e.lastSeen.Before(cutoff) {
			r.remove(visitorID)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if n := r.evictIdle(); n > 0 {
				r.logger.Debug("idle visitor stores evicted", "count", n)
			}
		}
	}
}

// Close stops idle eviction and releases the persister.
func (r *Registry) Close() error {
	r.stopOnce.Do(func() { close(r.done) })
	if r.persister == nil {
		return nil
	}
	return r.persister.Close()
}
