// Package keylock provides exclusive locks keyed by string.
package keylock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Arena hands out one exclusive lock per key. Keys that nobody holds or
// waits for are dropped, so the arena only grows with contention.
type Arena struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{locks: make(map[string]*entry)}
}

// Lock blocks until the lock for key is acquired or ctx is done.
// The returned function releases the lock and must be called exactly once.
func (a *Arena) Lock(ctx context.Context, key string) (func(), error) {
	a.mu.Lock()
	e, ok := a.locks[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		a.locks[key] = e
	}
	e.refs++
	a.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		a.release(key, e, false)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { a.release(key, e, true) })
	}, nil
}

func (a *Arena) release(key string, e *entry, held bool) {
	if held {
		e.sem.Release(1)
	}
	a.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(a.locks, key)
	}
	a.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
