// Package cache memoizes storage reads per caller scope.
//
// Keys are grouped. Invalidating a group bumps its generation for the scope,
// which makes every key built from the old generation unreachable; stale
// entries then age out by TTL.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/recshelf/recshelf-server/internal/metrics"
)

// Group is a set of keys invalidated together.
type Group string

const (
	GroupRecommendations Group = "recommendations"
	GroupPeople          Group = "people"
	GroupCategories      Group = "categories"
)

// AllGroups lists every group, in the order they are invalidated.
var AllGroups = []Group{GroupRecommendations, GroupPeople, GroupCategories}

// UserScope is the scope of an account's reads.
func UserScope(userID string) string { return "user:" + userID }

// VisitorScope is the scope of a visitor's reads.
func VisitorScope(visitorID string) string { return "visitor:" + visitorID }

// Key identifies one cached read.
type Key struct {
	Scope  string
	Group  Group
	Op     string
	Params []string
}

// format renders k at generation gen, e.g. "user:u1|recommendations|g3|by_type|book".
func (k Key) format(gen int64) string {
	var b strings.Builder
	b.WriteString(k.Scope)
	b.WriteByte('|')
	b.WriteString(string(k.Group))
	b.WriteString("|g")
	b.WriteString(strconv.FormatInt(gen, 10))
	b.WriteByte('|')
	b.WriteString(k.Op)
	b.WriteByte('|')
	b.WriteString(strings.Join(k.Params, ","))
	return b.String()
}

// Cache stores encoded read results. Backend failures read as misses.
type Cache interface {
	// Get looks key up under the group's current generation and returns
	// that generation alongside the value. A negative generation means it
	// could not be read.
	Get(ctx context.Context, key Key) (value []byte, gen int64, ok bool)
	// Set stores value under generation gen. A group invalidated after gen
	// was read never serves it.
	Set(ctx context.Context, key Key, gen int64, value []byte)
	// Invalidate drops the given groups for scope, or every group when
	// none are given.
	Invalidate(ctx context.Context, scope string, groups ...Group)
	Close() error
}

func groupsOrAll(groups []Group) []Group {
	if len(groups) == 0 {
		return AllGroups
	}
	return groups
}

// Cached returns the cached value for key, or calls load and caches its
// result. A nil cache always loads. Load errors are never cached.
func Cached[T any](ctx context.Context, c Cache, key Key, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	raw, gen, ok := c.Get(ctx, key)
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.RecordCacheLookup(true)
			return v, nil
		}
	}
	metrics.RecordCacheLookup(false)

	v, err := load(ctx)
	if err != nil || gen < 0 {
		return v, err
	}
	// Stored under the generation read before load, so a write that
	// invalidated the group meanwhile leaves this result unreachable.
	if raw, err := json.Marshal(v); err == nil {
		c.Set(ctx, key, gen, raw)
	}
	return v, nil
}
