// Package queue provides the one cross-goroutine channel type used
// throughout the coordinator: a FIFO, safe-for-concurrent-use queue of
// workitem.WorkItem with a bounded-wait dequeue, generalized from the
// teacher's bare taskCh/resultCh channel pair into a reusable type since
// this system needs many independently-routed typed queues rather than a
// fixed input/output pair.
package queue

import (
	"time"

	"github.com/dpxdt/coordinator/pkg/workitem"
)

// DefaultBufferSize is used when a caller does not size a Queue explicitly.
const DefaultBufferSize = 256

// Queue is a FIFO channel of WorkItems. Push and Pop are safe to call
// concurrently from any number of goroutines; ordering is FIFO per queue,
// per spec.md §5.
type Queue struct {
	ch chan workitem.WorkItem
}

// New creates a Queue with the given buffer size. A non-positive size falls
// back to DefaultBufferSize.
func New(bufferSize int) *Queue {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Queue{ch: make(chan workitem.WorkItem, bufferSize)}
}

// Push enqueues an item, blocking if the queue is full.
func (q *Queue) Push(item workitem.WorkItem) {
	q.ch <- item
}

// Pop attempts to dequeue an item, blocking for at most timeout. ok is
// false on timeout; the caller is expected to call idle() and retry, per
// the Worker loop semantics of spec.md §4.2.
func (q *Queue) Pop(timeout time.Duration) (item workitem.WorkItem, ok bool) {
	select {
	case item = <-q.ch:
		return item, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Len reports the number of items currently buffered, for metrics/status
// reporting. It is a snapshot, not a synchronization point.
func (q *Queue) Len() int {
	return len(q.ch)
}
