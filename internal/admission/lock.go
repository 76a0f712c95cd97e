package admission

import (
	"context"
	"sync"
)

// Locker serializes admissions per resource so the read-aggregate → check →
// insert sequence cannot interleave for the same resource. Lock returns the
// release function; requests for different resources proceed in parallel.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is the in-process Locker: one mutex per key, lazily created.
// Sufficient when a single engine instance owns the booking store. Entries
// are never evicted, so the map grows with the number of distinct resources
// ever booked; deployments with an unbounded resource space should use the
// redis locker, whose keys expire.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Lock(_ context.Context, key string) (func(), error) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}
