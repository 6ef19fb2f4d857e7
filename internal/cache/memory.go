package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

type generationKey struct {
	scope string
	group Group
}

// Memory is a process-local cache on ristretto.
type Memory struct {
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration

	mu          sync.Mutex
	generations map[generationKey]int64
}

// NewMemory creates a memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) (*Memory, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Memory{
		cache:       c,
		ttl:         ttl,
		generations: make(map[generationKey]int64),
	}, nil
}

func (m *Memory) generation(scope string, group Group) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[generationKey{scope, group}]
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, int64, bool) {
	gen := m.generation(key.Scope, key.Group)
	v, ok := m.cache.Get(key.format(gen))
	return v, gen, ok
}

func (m *Memory) Set(_ context.Context, key Key, gen int64, value []byte) {
	m.cache.SetWithTTL(key.format(gen), value, int64(len(value)), m.ttl)
	// Make the write visible to the next Get.
	m.cache.Wait()
}

func (m *Memory) Invalidate(_ context.Context, scope string, groups ...Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range groupsOrAll(groups) {
		m.generations[generationKey{scope, g}]++
	}
}

func (m *Memory) Close() error {
	m.cache.Close()
	return nil
}
