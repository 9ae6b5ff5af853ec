// ABOUTME: Unbounded FIFO queue connecting a pipeline caller to its worker
// ABOUTME: Pushes never block; pops come in blocking and non-blocking flavors
package queue

import "sync"

// FIFO is an unbounded queue for a single producer and a single consumer.
// Go channels are always bounded, so they cannot give the never-blocking
// append the pipelines promise; this trades memory for that guarantee.
type FIFO[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// New creates an empty open queue.
func New[T any]() *FIFO[T] {
	q := &FIFO[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends v without blocking. It reports false if the queue is closed.
func (q *FIFO[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.cond.Signal()
	return true
}

// TryPop removes the head without blocking. ok reports whether a value was
// returned; drained reports that the queue is closed and empty, so no value
// will ever arrive again. The two flags are decided atomically.
func (q *FIFO[T]) TryPop() (v T, ok bool, drained bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		v = q.pop()
		return v, true, false
	}
	return v, false, q.closed
}

// Pop blocks until a value is available or the queue is closed and empty.
func (q *FIFO[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return v, false
	}
	return q.pop(), true
}

// Close marks the queue as closed. Queued values remain readable; further
// pushes fail. Close is idempotent.
func (q *FIFO[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// Len returns the number of queued values.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *FIFO[T]) pop() T {
	v := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v
}
