package datatable

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned to a caller whose fetch was superseded by a newer
// state change. Its result is discarded.
var ErrStale = errors.New("datatable: superseded by a newer state")

// Result is one page of rows with totals.
type Result[T any] struct {
	Rows       []T
	Total      int
	TotalPages int
}

// FetchFunc loads rows for params. It must honour ctx cancellation.
type FetchFunc[T any] func(ctx context.Context, params FetchParams) (Result[T], error)

// Snapshot is the state and the result that belongs to it.
type Snapshot[T any] struct {
	State      State
	Result     Result[T]
	Generation uint64
	Loaded     bool
}

// Controller serialises table state changes. Every change to the fetch
// parameters starts a new generation: the previous in-flight fetch is
// cancelled and, should it still complete, its result is not applied.
type Controller[T any] struct {
	mu       sync.Mutex
	state    State
	result   Result[T]
	params   FetchParams
	loaded   bool
	gen      uint64
	applied  uint64
	inflight context.CancelFunc
}

// NewController returns a controller starting at initial.
func NewController[T any](initial State) *Controller[T] {
	return &Controller[T]{state: initial.Clone()}
}

// Snapshot returns the current state and last applied result.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Dispatch applies mutate and fetches when the fetch parameters changed or
// nothing has been loaded yet. Local-only changes return immediately.
func (c *Controller[T]) Dispatch(ctx context.Context, fetch FetchFunc[T], mutate func(*State)) (Snapshot[T], error) {
	return c.run(ctx, fetch, mutate, false)
}

// Reset replaces the whole state and always fetches.
func (c *Controller[T]) Reset(ctx context.Context, fetch FetchFunc[T], st State) (Snapshot[T], error) {
	return c.run(ctx, fetch, func(s *State) { *s = st.Clone() }, true)
}

// Refresh refetches the current state unconditionally.
func (c *Controller[T]) Refresh(ctx context.Context, fetch FetchFunc[T]) (Snapshot[T], error) {
	return c.run(ctx, fetch, nil, true)
}

func (c *Controller[T]) run(ctx context.Context, fetch FetchFunc[T], mutate func(*State), force bool) (Snapshot[T], error) {
	c.mu.Lock()
	next := c.state.Clone()
	if mutate != nil {
		mutate(&next)
	}
	c.state = next
	params := next.Params()
	if !force && c.loaded && params.Equal(c.params) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}

	c.gen++
	gen := c.gen
	if c.inflight != nil {
		c.inflight()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.inflight = cancel
	c.mu.Unlock()

	res, err := fetch(fetchCtx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if gen != c.gen {
		return Snapshot[T]{}, ErrStale
	}
	c.inflight = nil
	if err != nil {
		return c.snapshotLocked(), err
	}
	c.result = res
	c.params = params
	c.loaded = true
	c.applied = gen
	return c.snapshotLocked(), nil
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		State:      c.state.Clone(),
		Result:     c.result,
		Generation: c.applied,
		Loaded:     c.loaded,
	}
}
