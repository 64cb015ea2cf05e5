package app

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a FIFO mutual-exclusion lock. Waiters are admitted strictly in
// the order they called Acquire; a waiter whose ctx ends leaves the queue.
type Gate struct {
	sem     *semaphore.Weighted
	waiting atomic.Int64
}

func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the gate is granted or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.sem.TryAcquire(1) {
		return nil
	}
	g.waiting.Add(1)
	defer g.waiting.Add(-1)
	return g.sem.Acquire(ctx, 1)
}

// Release hands the gate to the oldest waiter, or frees it. Releasing an
// unheld gate panics.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Waiting returns the number of callers blocked in Acquire.
func (g *Gate) Waiting() int {
	return int(g.waiting.Load())
}

// Do runs fn while holding the gate.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}
