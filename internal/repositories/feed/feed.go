// Package feed is the channel plumbing shared by the live subscriptions of the
// message log and the presence channel.
package feed

import (
	"context"
	"sync"
)

// Feed delivers values from a store to one consumer until it ends.
// C is closed once the feed ends; Err then reports why (nil after Close).
// Send and End belong to the producer and must not be called concurrently.
type Feed[T any] struct {
	ch     chan T
	cancel context.CancelFunc
	ctx    context.Context

	once sync.Once
	mu   sync.Mutex
	err  error
}

// New creates a feed bound to parent. Cancelling parent or calling Close stops it.
func New[T any](parent context.Context, buffer int) *Feed[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Feed[T]{
		ch:     make(chan T, buffer),
		cancel: cancel,
		ctx:    ctx,
	}
}

// C returns the receive side
func (f *Feed[T]) C() <-chan T {
	return f.ch
}

// Context is done once the consumer closed the feed
func (f *Feed[T]) Context() context.Context {
	return f.ctx
}

// Send delivers v, blocking until there is room or the feed is closed
func (f *Feed[T]) Send(v T) bool {
	select {
	case <-f.ctx.Done():
		return false
	default:
	}

	select {
	case f.ch <- v:
		return true
	case <-f.ctx.Done():
		return false
	}
}

// End is called by the producer exactly when it stops; err is nil for a clean stop
func (f *Feed[T]) End(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		f.cancel()
		close(f.ch)
	})
}

// Err returns the reason the feed ended
func (f *Feed[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close stops the feed from the consumer side
func (f *Feed[T]) Close() {
	f.cancel()
}
