package executor

import (
	"sync"

	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// compactThreshold is the minimum number of consumed slots before the
// backing slice is compacted.
const compactThreshold = 64

// queue is an unbounded FIFO of envelopes with a blocking pop.
// It is safe for many producers and a single consumer.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []envelope
	head   int
	seq    uint64
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends env at the tail, assigns its sequence number and wakes the
// waiting consumer. It never blocks on capacity. After close it returns
// ErrClosed and env is not queued.
func (q *queue) push(env *envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return tverrors.ErrClosed
	}
	q.seq++
	env.seq = q.seq
	q.items = append(q.items, *env)
	q.mu.Unlock()

	q.cond.Signal()
	return nil
}

// pop blocks until an envelope is available or the queue is closed.
// It returns false only when woken with the queue both empty and closed;
// the caller decides whether that means exit.
func (q *queue) pop() (envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.lenLocked() == 0 {
		return envelope{}, false
	}

	env := q.items[q.head]
	q.items[q.head] = envelope{}
	q.head++
	q.compactLocked()
	return env, true
}

// close stops further pushes and wakes the consumer. Already queued
// envelopes stay poppable. Idempotent.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// closeAndDrain closes the queue and removes everything still queued in a
// single critical section, so no push can land between the two.
func (q *queue) closeAndDrain() []envelope {
	q.mu.Lock()
	q.closed = true
	rest := make([]envelope, q.lenLocked())
	copy(rest, q.items[q.head:])
	q.items = nil
	q.head = 0
	q.mu.Unlock()

	q.cond.Broadcast()
	return rest
}

func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *queue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *queue) compactLocked() {
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		for i := n; i < len(q.items); i++ {
			q.items[i] = envelope{}
		}
		q.items = q.items[:n]
		q.head = 0
	}
}
