// Package clientsync keeps a local cache of API resources in step with the
// server. Mutations are applied optimistically, rolled back on failure and
// reconciled with the authoritative response on success.
package clientsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	ViewDetail = "detail"
	ViewList   = "list"
)

// Key identifies one cache entry. Detail views use the entity id as Param;
// list views use the canonical JSON of their filters.
type Key struct {
	Resource string
	View     string
	Param    string
}

func (k Key) String() string {
	return k.Resource + "|" + k.View + "|" + k.Param
}

// DetailKey is the key of a single entity.
func DetailKey(resource string, id uuid.UUID) Key {
	return Key{Resource: resource, View: ViewDetail, Param: id.String()}
}

// ViewKey is the key of a list or summary view. filters may be nil.
func ViewKey(resource, view string, filters any) Key {
	return Key{Resource: resource, View: view, Param: FilterSignature(filters)}
}

// FilterSignature returns the canonical JSON encoding of filters. Struct
// fields encode in declaration order and map keys sorted, so equal filters
// always share a key.
func FilterSignature(filters any) string {
	if filters == nil {
		return ""
	}
	raw, err := json.Marshal(filters)
	if err != nil {
		return fmt.Sprintf("%v", filters)
	}
	return string(raw)
}

// Matcher selects cache keys.
type Matcher func(Key) bool

// Exact matches a single key.
func Exact(key Key) Matcher {
	return func(k Key) bool { return k == key }
}

// ResourceView matches every key of a view regardless of Param.
func ResourceView(resource, view string) Matcher {
	return func(k Key) bool { return k.Resource == resource && k.View == view }
}

// Resource matches every key of a resource.
func Resource(resource string) Matcher {
	return func(k Key) bool { return k.Resource == resource }
}

// AnyOf matches when any of the matchers does.
func AnyOf(matchers ...Matcher) Matcher {
	return func(k Key) bool {
		for _, m := range matchers {
			if m != nil && m(k) {
				return true
			}
		}
		return false
	}
}

type entry struct {
	value     any
	stale     bool
	fetchedAt time.Time
}

// Cache stores decoded API values. Stored values are never mutated in
// place; writers replace them, which keeps snapshots verbatim.
type Cache struct {
	mu          sync.Mutex
	entries     map[Key]entry
	generations map[Key]uint64
	inflight    map[Key]int
	group       singleflight.Group
	ttl         time.Duration
	now         func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL marks entries stale once they are older than ttl. Zero keeps
// entries fresh until they are invalidated.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache builds an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:     make(map[Key]entry),
		generations: make(map[Key]uint64),
		inflight:    make(map[Key]int),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached value and whether it is still fresh.
func (c *Cache) Get(key Key) (value any, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.value, c.freshLocked(e), true
}

// Set stores a fresh value.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, fetchedAt: c.now()}
}

// Update replaces the value under key with fn's result. fn sees the current
// value and returns ok=false to leave the entry untouched. Staleness is
// preserved so optimistic edits do not mask a pending refetch.
func (c *Cache) Update(key Key, fn func(current any) (any, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	if !exists {
		return
	}
	next, ok := fn(e.value)
	if !ok {
		return
	}
	e.value = next
	c.entries[key] = e
}

// UpdateMatching applies fn to every entry selected by match.
func (c *Cache) UpdateMatching(match Matcher, fn func(key Key, current any) (any, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !match(key) {
			continue
		}
		next, ok := fn(key, e.value)
		if !ok {
			continue
		}
		e.value = next
		c.entries[key] = e
	}
}

// Delete drops entries selected by match.
func (c *Cache) Delete(match Matcher) {
	c.DeleteIf(func(key Key, _ any) bool { return match(key) })
}

// DeleteIf drops entries for which drop returns true.
func (c *Cache) DeleteIf(drop func(key Key, value any) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if drop(key, e.value) {
			delete(c.entries, key)
		}
	}
}

// Range calls fn for every entry selected by match until fn returns false.
// fn must not call back into the cache.
func (c *Cache) Range(match Matcher, fn func(key Key, value any) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if match(key) && !fn(key, e.value) {
			return
		}
	}
}

// Invalidate marks entries stale so the next Fetch refetches them.
func (c *Cache) Invalidate(match Matcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if match(key) {
			e.stale = true
			c.entries[key] = e
		}
	}
}

// CancelRefetches makes in-flight fetches of matching keys discard their
// result. The requests themselves keep running.
func (c *Cache) CancelRefetches(match Matcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.inflight {
		if match(key) {
			c.generations[key]++
		}
	}
}

// Fetch returns the fresh cached value or loads it with fetch. Concurrent
// fetches of one key share a single call.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	if value, fresh, ok := c.Get(key); ok && fresh {
		return value, nil
	}

	result, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		gen := c.generations[key]
		c.inflight[key]++
		c.mu.Unlock()

		value, err := fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.inflight[key]--
		if c.inflight[key] <= 0 {
			delete(c.inflight, key)
		}
		if err != nil {
			return nil, err
		}
		if c.generations[key] != gen {
			if current, ok := c.entries[key]; ok {
				return current.value, nil
			}
			return value, nil
		}
		c.entries[key] = entry{value: value, fetchedAt: c.now()}
		return value, nil
	})
	return result, err
}

func (c *Cache) freshLocked(e entry) bool {
	if e.stale {
		return false
	}
	if c.ttl > 0 && c.now().Sub(e.fetchedAt) > c.ttl {
		return false
	}
	return true
}

// Snapshot is a verbatim copy of the entries selected when it was taken.
type Snapshot struct {
	match   Matcher
	entries map[Key]entry
}

// Snapshot copies every entry selected by match.
func (c *Cache) Snapshot(match Matcher) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{match: match, entries: make(map[Key]entry)}
	for key, e := range c.entries {
		if match(key) {
			snap.entries[key] = e
		}
	}
	return snap
}

// Restore puts the snapshotted entries back and drops matching entries that
// did not exist when the snapshot was taken.
func (c *Cache) Restore(snap Snapshot) {
	if snap.match == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if _, kept := snap.entries[key]; !kept && snap.match(key) {
			delete(c.entries, key)
		}
	}
	for key, e := range snap.entries {
		c.entries[key] = e
	}
}
