// Package channel provides the bounded single-consumer queue that feeds a
// call session's pipeline. This package is internal and should not be
// imported by external projects.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Pop once the queue has been closed and drained.
var ErrClosed = errors.New("queue closed")

// DropQueue is a bounded queue that sheds load instead of blocking the
// producer. With depth 0 a push only succeeds while the consumer is
// waiting, which is exactly the "at most one utterance in flight" policy:
// anything arriving mid-processing is dropped and counted.
type DropQueue[T any] struct {
	ch      chan T
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
	pushed  atomic.Int64
}

// NewDropQueue creates a queue with the given depth. Negative depth is
// treated as zero.
func NewDropQueue[T any](depth int) *DropQueue[T] {
	if depth < 0 {
		depth = 0
	}
	return &DropQueue[T]{ch: make(chan T, depth)}
}

// TryPush offers a value without blocking. It reports whether the value
// was accepted; rejected values are counted as dropped.
func (q *DropQueue[T]) TryPush(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.dropped.Add(1)
		return false
	}

	select {
	case q.ch <- v:
		q.pushed.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop blocks until a value is available, the context is cancelled, or the
// queue is closed.
func (q *DropQueue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-q.ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Dropped returns the number of rejected values.
func (q *DropQueue[T]) Dropped() int64 {
	return q.dropped.Load()
}

// Pushed returns the number of accepted values.
func (q *DropQueue[T]) Pushed() int64 {
	return q.pushed.Load()
}

// Len returns the number of queued values.
func (q *DropQueue[T]) Len() int {
	return len(q.ch)
}

// Close closes the queue. Pending values remain readable; further pushes
// are dropped. Close is idempotent.
func (q *DropQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
