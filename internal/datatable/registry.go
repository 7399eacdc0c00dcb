package datatable

import (
	"sync"
	"time"
)

type registryEntry[T any] struct {
	ctrl     *Controller[T]
	lastUsed time.Time
}

// Registry keeps one controller per key, typically the session id, and
// forgets controllers idle for longer than maxIdle.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]*registryEntry[T]
	maxIdle time.Duration
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry[T any](maxIdle time.Duration) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*registryEntry[T]),
		maxIdle: maxIdle,
		now:     time.Now,
	}
}

// Get returns the controller for key, creating it from initial when absent.
func (r *Registry[T]) Get(key string, initial func() State) *Controller[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweepLocked(now)
	if e, ok := r.entries[key]; ok {
		e.lastUsed = now
		return e.ctrl
	}
	ctrl := NewController[T](initial())
	r.entries[key] = &registryEntry[T]{ctrl: ctrl, lastUsed: now}
	return ctrl
}

// Forget drops the controller for key.
func (r *Registry[T]) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

func (r *Registry[T]) sweepLocked(now time.Time) {
	if r.maxIdle <= 0 {
		return
	}
	for key, e := range r.entries {
		if now.Sub(e.lastUsed) > r.maxIdle {
			delete(r.entries, key)
		}
	}
}
