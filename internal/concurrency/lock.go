package concurrency

import (
	"context"
	"sync"
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

// SessionLockManager serializes work per key. Entries are reference counted
// and dropped once no goroutine holds or waits on them, so the map only grows
// with the number of keys in flight.
type SessionLockManager struct {
	locks map[string]*keyLock
	mu    sync.Mutex
}

func NewSessionLockManager() *SessionLockManager {
	return &SessionLockManager{
		locks: make(map[string]*keyLock),
	}
}

// Lock blocks until the key is free or ctx is done. On success the caller
// must call Unlock with the same key.
func (m *SessionLockManager) Lock(ctx context.Context, key string) error {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.release(key, lock)
		return ctx.Err()
	}
}

func (m *SessionLockManager) Unlock(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	m.mu.Unlock()
	if !ok {
		return
	}

	<-lock.ch
	m.release(key, lock)
}

func (m *SessionLockManager) release(key string, lock *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (m *SessionLockManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
