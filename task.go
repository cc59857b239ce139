package taskq

import (
	"time"

	"github.com/google/uuid"
)

// task wraps a payload with the ordering state owned by the [Queue]. It is
// never handed to callers.
type task[T any] struct {
	id         uuid.UUID
	value      T
	priority   Priority
	enqueuedAt time.Time
	index      int

	// The seqNo is used to maintain the order of tasks with the same priority.
	// It is assigned under the queue lock and is immutable. A uint64 counter
	// will not overflow in practice.
	seqNo uint64
}

func (t *task[T]) info(now time.Time) TaskInfo {
	return TaskInfo{
		ID:         t.id,
		Priority:   t.priority,
		Seq:        t.seqNo,
		EnqueuedAt: t.enqueuedAt,
		Waited:     now.Sub(t.enqueuedAt),
	}
}

// TaskInfo describes a task for observers. It is a copy, so holding on to it
// cannot affect the queue.
type TaskInfo struct {
	ID         uuid.UUID
	Priority   Priority
	Seq        uint64
	EnqueuedAt time.Time

	// Waited is the time spent in the queue. It is zero for newly added
	// tasks.
	Waited time.Duration
}

// taskHeap implements [heap.Interface] ordered by (priority, seqNo).
type taskHeap[T any] []*task[T]

func (h taskHeap[T]) Len() int {
	return len(h)
}

func (h taskHeap[T]) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.priority.priority != b.priority.priority {
		return a.priority.priority < b.priority.priority
	}
	return a.seqNo < b.seqNo
}

func (h taskHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap[T]) Push(x any) {
	t := x.(*task[T])
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap[T]) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil // avoid memory leak
	t.index = -1   // for safety
	*h = old[0 : n-1]
	return t
}
