package taskq

import (
	"container/heap"
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ensure taskHeap implements [heap.Interface].
var _ heap.Interface = (*taskHeap[any])(nil)

// MetricsHook defines hooks for monitoring add, remove, and reject events.
// Hooks are called after the queue lock has been released, so they may call
// back into the [Queue]. Under concurrent use, events for the same task are
// not guaranteed to arrive in order: OnRemove may be observed before OnAdd.
type MetricsHook interface {
	OnAdd(info TaskInfo)
	OnRemove(info TaskInfo)
	OnReject(p Priority)
}

// Stats is a consistent snapshot of the queue counters.
type Stats struct {
	Len      int
	Added    uint64
	Removed  uint64
	Rejected uint64
	Depth    map[Priority]int
}

// Queue is a priority queue that supports the following operations:
//
//   - Add with a priority
//   - Next and Peek, returning immediately when the queue is empty
//   - Take, blocking until a task is available or the context is cancelled
//   - Metrics hooks for add, remove, and reject events
//
// Tasks with a more urgent priority are removed first. If two tasks have the
// same priority, they are removed in FIFO order. All state is guarded by a
// single mutex.
type Queue[T any] struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	metrics MetricsHook

	tasks taskHeap[T]
	seqNo uint64

	added    uint64
	removed  uint64
	rejected uint64

	notifyCh chan struct{}
}

// New creates a new empty [Queue] with the given options.
func New[T any](opts ...Option) *Queue[T] {
	o := &Options{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	q := &Queue[T]{
		logger:   o.Logger,
		metrics:  o.Metrics,
		tasks:    make(taskHeap[T], 0, o.InitialCapacity),
		notifyCh: make(chan struct{}, 1),
	}

	heap.Init(&q.tasks)
	return q
}

// Add inserts value with the given priority. It returns an error wrapping
// [ErrInvalidPriority] if the priority is not recognised, in which case the
// queue is left untouched.
func (q *Queue[T]) Add(value T, p Priority) error {
	if !p.IsValid() {
		q.mu.Lock()
		q.rejected++
		q.mu.Unlock()

		q.logger.Warn().Str("op", "add").Stringer("priority", p).Msg("[taskq] rejected task")
		if q.metrics != nil {
			q.metrics.OnReject(p)
		}
		return &PriorityError{Op: "add", Priority: p, Err: ErrInvalidPriority}
	}

	t := &task[T]{
		id:       uuid.New(),
		value:    value,
		priority: p,
		index:    -1,
	}

	q.mu.Lock()
	t.seqNo = q.seqNo
	t.enqueuedAt = time.Now()
	q.seqNo++
	q.added++
	heap.Push(&q.tasks, t)
	n := len(q.tasks)
	q.mu.Unlock()

	if q.logger.GetLevel() <= zerolog.DebugLevel {
		q.logger.Debug().
			Stringer("task_id", t.id).
			Stringer("priority", p).
			Uint64("seq", t.seqNo).
			Int("queue_len", n).
			Msg("[taskq] task added")
	}
	if q.metrics != nil {
		q.metrics.OnAdd(t.info(t.enqueuedAt))
	}

	q.notify()
	return nil
}

func (q *Queue[T]) notify() {
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}

// Next removes and returns the most urgent value. The boolean is false if
// the queue is empty, in which case the queue is unchanged.
func (q *Queue[T]) Next() (T, bool) {
	q.mu.Lock()
	t, n := q.pop()
	q.mu.Unlock()

	if t == nil {
		var zero T
		return zero, false
	}

	q.removedHook(t, n, time.Now())

	// Wake another waiter if work remains.
	if n > 0 {
		q.notify()
	}
	return t.value, true
}

// pop must be called with q.mu held.
func (q *Queue[T]) pop() (*task[T], int) {
	if len(q.tasks) == 0 {
		return nil, 0
	}
	t := heap.Pop(&q.tasks).(*task[T])
	q.removed++
	return t, len(q.tasks)
}

func (q *Queue[T]) removedHook(t *task[T], remaining int, now time.Time) {
	if q.logger.GetLevel() <= zerolog.DebugLevel {
		q.logger.Debug().
			Stringer("task_id", t.id).
			Stringer("priority", t.priority).
			Uint64("seq", t.seqNo).
			Int("queue_len", remaining).
			Msg("[taskq] task removed")
	}
	if q.metrics != nil {
		q.metrics.OnRemove(t.info(now))
	}
}

// Take removes and returns the most urgent value. If the queue is empty,
// Take blocks until a value is available or ctx is done, in which case it
// returns ctx.Err().
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	for {
		if v, ok := q.Next(); ok {
			return v, nil
		}

		select {
		case <-q.notifyCh:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Tasks returns an iterator over queued values. The iterator yields the most
// urgent value, blocking until values are available or the context is
// cancelled.
func (q *Queue[T]) Tasks(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := q.Take(ctx)
			if err != nil {
				return
			}

			if !yield(v) {
				return
			}
		}
	}
}

// Drain removes every queued value under a single lock acquisition and
// returns them in dequeue order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	drained := make([]*task[T], 0, len(q.tasks))
	for {
		t, _ := q.pop()
		if t == nil {
			break
		}
		drained = append(drained, t)
	}
	q.mu.Unlock()

	now := time.Now()
	values := make([]T, len(drained))
	for i, t := range drained {
		q.removedHook(t, len(drained)-i-1, now)
		values[i] = t.value
	}
	return values
}

// Peek returns the value [Queue.Next] would return without removing it. The
// result may be stale as soon as it is returned if other goroutines are
// removing tasks.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		var zero T
		return zero, false
	}
	return q.tasks[0].value, true
}

// IsEmpty reports whether the queue holds no tasks. Like [Queue.Peek], the
// answer is advisory under concurrent use.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of tasks currently queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	depth := make(map[Priority]int, len(Priorities.All()))
	for _, t := range q.tasks {
		depth[t.priority]++
	}
	return Stats{
		Len:      len(q.tasks),
		Added:    q.added,
		Removed:  q.removed,
		Rejected: q.rejected,
		Depth:    depth,
	}
}
