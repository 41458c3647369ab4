package clientsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listFilters struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page,omitempty"`
}

func TestViewKeyIsStableForEqualFilters(t *testing.T) {
	a, b := "COMPLETED", "COMPLETED"
	first := ViewKey("payments", ViewList, listFilters{Status: &a, Page: 2})
	second := ViewKey("payments", ViewList, listFilters{Status: &b, Page: 2})
	assert.Equal(t, first, second)

	other := ViewKey("payments", ViewList, listFilters{Page: 2})
	assert.NotEqual(t, first, other)
	assert.Equal(t, "", ViewKey("payments", "stats", nil).Param)
}

func TestFetchServesFreshAndRefetchesInvalidated(t *testing.T) {
	cache := NewCache()
	key := Key{Resource: "payments", View: "stats"}
	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	v, err := cache.Fetch(context.Background(), key, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = cache.Fetch(context.Background(), key, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "fresh entry is served from cache")

	cache.Invalidate(Exact(key))
	stale, fresh, ok := cache.Get(key)
	require.True(t, ok)
	assert.False(t, fresh)
	assert.Equal(t, 1, stale)

	v, err = cache.Fetch(context.Background(), key, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestFetchHonoursTTL(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	key := Key{Resource: "notifications", View: "unread-count"}
	cache.Set(key, 3)

	_, fresh, _ := cache.Get(key)
	assert.True(t, fresh)

	now = now.Add(2 * time.Minute)
	_, fresh, _ = cache.Get(key)
	assert.False(t, fresh)
}

func TestFetchCoalescesConcurrentCalls(t *testing.T) {
	cache := NewCache()
	key := Key{Resource: "payments", View: ViewList}
	release := make(chan struct{})
	var calls int32

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "page", nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "page", r)
	}
}

func TestCancelRefetchesDiscardsInFlightResult(t *testing.T) {
	cache := NewCache()
	key := Key{Resource: "notifications", View: "unread-count"}
	cache.Set(key, 5)
	cache.Invalidate(Exact(key))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any)
	go func() {
		v, _ := cache.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return 99, nil
		})
		done <- v
	}()

	<-started
	cache.CancelRefetches(Exact(key))
	cache.Update(key, func(any) (any, bool) { return 4, true })
	close(release)

	assert.Equal(t, 4, <-done, "cancelled fetch returns the optimistic value")
	v, _, _ := cache.Get(key)
	assert.Equal(t, 4, v)
}

func TestFetchErrorKeepsEntry(t *testing.T) {
	cache := NewCache()
	key := Key{Resource: "payments", View: "stats"}
	cache.Set(key, "old")
	cache.Invalidate(Exact(key))

	_, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
		return nil, errors.New("offline")
	})
	require.Error(t, err)
	v, _, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "old", v)
}

func TestSnapshotRestoreIsVerbatim(t *testing.T) {
	cache := NewCache()
	id := uuid.New()
	detail := DetailKey("payments", id)
	list := ViewKey("payments", ViewList, nil)
	other := DetailKey("notifications", id)

	cache.Set(detail, "before")
	cache.Set(other, "untouched")
	snap := cache.Snapshot(Resource("payments"))

	cache.Update(detail, func(any) (any, bool) { return "after", true })
	cache.Set(list, "optimistic page")
	cache.Update(other, func(any) (any, bool) { return "changed elsewhere", true })

	cache.Restore(snap)

	v, _, ok := cache.Get(detail)
	require.True(t, ok)
	assert.Equal(t, "before", v)
	_, _, ok = cache.Get(list)
	assert.False(t, ok, "entries created after the snapshot are dropped")
	v, _, _ = cache.Get(other)
	assert.Equal(t, "changed elsewhere", v, "restore only touches matched keys")
}

func TestKeyedLocksSerializeSameKey(t *testing.T) {
	locks := newKeyedLocks()
	ctx := context.Background()

	unlock, err := locks.lock(ctx, "payments:1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locks.lock(ctx, "payments:1")
		assert.NoError(t, err)
		close(acquired)
		second()
	}()

	otherUnlock, err := locks.lock(ctx, "payments:2")
	require.NoError(t, err, "different keys do not block")
	otherUnlock()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key must wait")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestKeyedLocksRespectContext(t *testing.T) {
	locks := newKeyedLocks()
	unlock, err := locks.lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResourceLocksExclusiveWaitsForShared(t *testing.T) {
	locks := newResourceLocks()
	ctx := context.Background()

	sharedA, err := locks.lock(ctx, "notifications", false)
	require.NoError(t, err)
	sharedB, err := locks.lock(ctx, "notifications", false)
	require.NoError(t, err, "shared holders do not block each other")

	acquired := make(chan struct{})
	go func() {
		exclusive, err := locks.lock(ctx, "notifications", true)
		assert.NoError(t, err)
		close(acquired)
		exclusive()
	}()

	other, err := locks.lock(ctx, "payments", true)
	require.NoError(t, err, "other resources are independent")
	other()

	sharedA()
	select {
	case <-acquired:
		t.Fatal("exclusive lock must wait for every shared holder")
	case <-time.After(20 * time.Millisecond):
	}

	sharedB()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("exclusive lock never acquired")
	}
}

func TestResourceLocksRespectContext(t *testing.T) {
	locks := newResourceLocks()
	unlock, err := locks.lock(context.Background(), "notifications", true)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, "notifications", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
