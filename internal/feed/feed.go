// Package feed provides the publish/subscribe state holders backing the
// engine's reactive reads. A Feed owns the latest immutable snapshot of
// one piece of state; writers publish replacements and every live
// subscriber observes them. Feeds are explicit objects owned by the store
// and the vault; there is no global listener registration.
package feed

import (
	"context"
	"sync"
)

// Feed holds the latest snapshot of a value and fans out updates.
//
// Subscribers receive the current value immediately on subscription, then
// every subsequent publish. A slow subscriber never blocks the writer:
// each subscription buffers exactly one pending value and intermediate
// snapshots are coalesced to the newest.
type Feed[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[*subscription[T]]struct{}
}

type subscription[T any] struct {
	ch chan T
}

// New creates a Feed seeded with an initial snapshot.
func New[T any](initial T) *Feed[T] {
	return &Feed[T]{
		current: initial,
		subs:    make(map[*subscription[T]]struct{}),
	}
}

// Get returns the latest published snapshot.
func (f *Feed[T]) Get() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Publish replaces the snapshot and notifies all subscribers.
// Never blocks on subscriber consumption.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = v
	for s := range f.subs {
		// Drop the undelivered previous value, if any, then enqueue the
		// newest. The one-slot buffer cannot be refilled concurrently
		// because publishes are serialized by f.mu.
		select {
		case <-s.ch:
		default:
		}
		s.ch <- v
	}
}

// Subscribe returns a channel primed with the current snapshot. The
// subscription is dropped and the channel closed when ctx is cancelled.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	f.mu.Lock()
	s := &subscription[T]{ch: make(chan T, 1)}
	s.ch <- f.current
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, s)
		f.mu.Unlock()
		close(s.ch)
	}()

	return s.ch
}
