package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry serializes turn processing per session. A session processes at
// most one in-flight turn at a time; a second concurrent request fails fast
// with ErrSessionBusy instead of queueing. Different sessions proceed in
// parallel.
type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Acquire takes the session's turn lock, or returns ErrSessionBusy when a
// turn is already in flight. The returned release function must be called
// exactly once.
func (r *Registry) Acquire(id uuid.UUID) (func(), error) {
	r.mu.Lock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	r.mu.Unlock()

	if !lock.TryLock() {
		return nil, ErrSessionBusy
	}
	return lock.Unlock, nil
}

// Forget drops the lock entry for a session that no longer exists
func (r *Registry) Forget(id uuid.UUID) {
	r.mu.Lock()
	delete(r.locks, id)
	r.mu.Unlock()
}
