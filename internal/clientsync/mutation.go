package clientsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/angelmondragon/comercio-backend/pkg/apiclient"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
)

// Reporter shows a mutation failure to the user.
type Reporter interface {
	Report(ctx context.Context, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, message string)

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, message string) { f(ctx, message) }

// MutationError is returned when a mutation failed and the cache was rolled
// back. Message is what the user should see.
type MutationError struct {
	Op      string
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	return e.Message
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// UserMessage picks the server message when it carries one, else fallback.
func UserMessage(err error, fallback string) string {
	if apiErr, ok := apiclient.AsError(err); ok {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

// Mutation describes one optimistic write.
type Mutation[T any] struct {
	// Name labels logs and errors.
	Name string
	// Resource names the collection the mutation touches.
	Resource string
	// Entity is the id of the single entity changed. Two mutations on the
	// same entity never overlap. An empty Entity marks a bulk mutation,
	// which runs alone on its Resource.
	Entity string
	// Affected selects the keys whose refetches are cancelled and which are
	// snapshotted for rollback.
	Affected Matcher
	// Optimistic edits the cache before the remote call. Optional.
	Optimistic func(c *Cache)
	Call       func(ctx context.Context) (T, error)
	// Apply writes the authoritative result. Optional.
	Apply func(c *Cache, result T)
	// Invalidate selects dependent views to refetch after success.
	Invalidate Matcher
	Fallback   string
}

// Syncer owns the cache and runs mutations against it.
type Syncer struct {
	cache     *Cache
	reporter  Reporter
	logg      *logger.Logger
	locks     *keyedLocks
	resources *resourceLocks
}

// NewSyncer builds a Syncer. reporter and logg may be nil.
func NewSyncer(cache *Cache, reporter Reporter, logg *logger.Logger) (*Syncer, error) {
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	return &Syncer{
		cache:     cache,
		reporter:  reporter,
		logg:      logg,
		locks:     newKeyedLocks(),
		resources: newResourceLocks(),
	}, nil
}

// Cache exposes the underlying cache.
func (s *Syncer) Cache() *Cache { return s.cache }

// Run executes m: cancel refetches, snapshot, apply optimistically, call the
// server, then reconcile or roll back.
func Run[T any](ctx context.Context, s *Syncer, m Mutation[T]) (T, error) {
	var zero T
	if m.Call == nil {
		return zero, fmt.Errorf("mutation %s has no call", m.Name)
	}

	unlock, err := s.acquire(ctx, m.Resource, m.Entity)
	if err != nil {
		return zero, err
	}
	defer unlock()

	affected := m.Affected
	if affected == nil {
		affected = func(Key) bool { return false }
	}

	s.cache.CancelRefetches(affected)
	snap := s.cache.Snapshot(affected)
	if m.Optimistic != nil {
		m.Optimistic(s.cache)
	}

	result, err := m.Call(ctx)
	if err != nil {
		s.cache.Restore(snap)
		msg := UserMessage(err, m.Fallback)
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"mutation": m.Name, "resource": m.Resource, "entity": m.Entity})
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "mutation rolled back")
		}
		if s.reporter != nil {
			s.reporter.Report(ctx, msg)
		}
		return zero, &MutationError{Op: m.Name, Message: msg, Err: err}
	}

	if m.Apply != nil {
		m.Apply(s.cache, result)
	}
	if m.Invalidate != nil {
		s.cache.Invalidate(m.Invalidate)
	}
	return result, nil
}

// acquire takes the resource lock shared for single-entity mutations, plus
// the entity lock, and exclusive for bulk ones.
func (s *Syncer) acquire(ctx context.Context, resource, entity string) (func(), error) {
	bulk := entity == ""
	releaseResource, err := s.resources.lock(ctx, resource, bulk)
	if err != nil {
		return nil, err
	}
	if bulk {
		return releaseResource, nil
	}
	releaseEntity, err := s.locks.lock(ctx, resource+":"+entity)
	if err != nil {
		releaseResource()
		return nil, err
	}
	return func() {
		releaseEntity()
		releaseResource()
	}, nil
}

// exclusiveWeight bounds concurrent single-entity mutations per resource.
const exclusiveWeight = 1 << 20

// resourceLocks is a reader/writer lock per resource that honours ctx.
// Waiters are served in order, so a queued bulk mutation is not starved.
type resourceLocks struct {
	mu    sync.Mutex
	slots map[string]*resourceSlot
}

type resourceSlot struct {
	sem  *semaphore.Weighted
	refs int
}

func newResourceLocks() *resourceLocks {
	return &resourceLocks{slots: make(map[string]*resourceSlot)}
}

func (l *resourceLocks) lock(ctx context.Context, resource string, exclusive bool) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[resource]
	if !ok {
		slot = &resourceSlot{sem: semaphore.NewWeighted(exclusiveWeight)}
		l.slots[resource] = slot
	}
	slot.refs++
	l.mu.Unlock()

	weight := int64(1)
	if exclusive {
		weight = exclusiveWeight
	}
	if err := slot.sem.Acquire(ctx, weight); err != nil {
		l.release(resource, slot)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			slot.sem.Release(weight)
			l.release(resource, slot)
		})
	}, nil
}

func (l *resourceLocks) release(resource string, slot *resourceSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, resource)
	}
}

// keyedLocks hands out one mutex per key and frees it when unused.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[string]*lockSlot)}
}

func (l *keyedLocks) lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(key, slot)
		})
	}, nil
}

func (l *keyedLocks) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
