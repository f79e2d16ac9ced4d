package live

import (
	"context"
	"sync"

	"bear-kitchen/internal/database"
)

// Query reads a value from the store.
type Query[T any] func(ctx context.Context) (T, error)

// Snapshot is one evaluation of a subscription's query. Seq starts at 1
// for the initial snapshot.
type Snapshot[T any] struct {
	Value T
	Err   error
	Seq   uint64
}

// Subscription delivers snapshots on C until it is unsubscribed or its
// context ends, after which C is closed.
type Subscription[T any] struct {
	C <-chan Snapshot[T]

	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe evaluates query once right away and again after every write
// to collection. Writes are not coalesced: n writes cause n evaluations.
func Subscribe[T any](ctx context.Context, hub *Hub, collection database.Collection, query Query[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot[T])
	wake := make(chan struct{}, 1)

	var (
		mu      sync.Mutex
		pending int
	)
	remove := hub.Observe(collection, func() {
		mu.Lock()
		pending++
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	sub := &Subscription[T]{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(out)
		defer remove()

		var seq uint64
		emit := func() bool {
			value, err := query(ctx)
			if ctx.Err() != nil {
				return false
			}
			seq++
			select {
			case out <- Snapshot[T]{Value: value, Err: err, Seq: seq}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}

			mu.Lock()
			n := pending
			pending = 0
			mu.Unlock()

			for i := 0; i < n; i++ {
				if !emit() {
					return
				}
			}
		}
	}()

	return sub
}

// Unsubscribe stops the subscription and waits until its goroutine has
// exited. No snapshot is delivered after it returns. Safe to call twice.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}
