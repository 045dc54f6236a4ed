// Package worker bounds CPU-heavy request work. Hashing and parsing
// uploads would otherwise let request volume translate directly into
// unbounded CPU and memory pressure.
package worker

import (
	"context"
	"fmt"
)

// Pool limits how many tasks run concurrently. Acquisition respects
// the caller's context, so a canceled upload stops waiting for a slot.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool allowing size concurrent tasks.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		slots: make(chan struct{}, size),
	}
}

// Do runs fn once a slot is free. It returns the context error when
// the caller gives up before a slot opens, otherwise fn's error.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return fmt.Errorf("waiting for worker slot: %w", ctx.Err())
	}

	return fn()
}

// Size returns the pool's concurrency bound.
func (p *Pool) Size() int {
	return cap(p.slots)
}
