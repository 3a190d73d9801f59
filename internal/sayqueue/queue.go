// Package sayqueue holds utterances waiting for the speech sink.
package sayqueue

import "sync"

// Queue is an unbounded FIFO of utterances. Producers never block on the
// consumer; the consumer takes everything queued in one step.
type Queue struct {
	mu    sync.Mutex
	items []string
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Append adds one utterance at the tail.
func (q *Queue) Append(s string) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()
}

// Drain returns everything queued, oldest first, and leaves the queue empty.
// The snapshot and the clear happen under the same lock.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	batch := q.items
	q.items = nil
	return batch
}

// Len returns the number of queued utterances.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
