package future

import (
	"context"
	"sync"
)

// Chan is a future that completes exactly once with a value of type T.
//
// Completion never blocks and every reader observes the same value.
// A Chan is safe for concurrent use.
type Chan[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
}

// NewChan returns a new, uncompleted Chan.
func NewChan[T any]() *Chan[T] {
	return &Chan[T]{done: make(chan struct{})}
}

// Complete sets the result once. Later calls are no-ops.
func (f *Chan[T]) Complete(result T) *Chan[T] {
	f.once.Do(func() {
		f.val = result
		close(f.done)
	})
	return f
}

// Get blocks until the result is available.
func (f *Chan[T]) Get() T {
	<-f.done
	return f.val
}

// Await is like Get but gives up when ctx is canceled.
func (f *Chan[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
