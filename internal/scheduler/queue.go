package scheduler

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/utest/internal/harness"
)

// task is a posted function due at an offset from the scheduler's epoch.
type task struct {
	handle harness.Handle
	due    time.Duration
	fn     func()
	index  int
}

// taskHeap orders tasks by due time, then by handle (posting order).
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].handle < h[j].handle
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// timedQueue is a thread-safe priority queue of tasks.
//
// The signal channel (buffered, size 1) wakes a waiting run loop whenever
// a task is pushed, so a new earlier deadline is noticed.
type timedQueue struct {
	mu      sync.Mutex
	tasks   taskHeap
	pending map[harness.Handle]*task
	clock   *Clock
	closed  bool
	signal  chan struct{}
}

func newTimedQueue() *timedQueue {
	return &timedQueue{
		tasks:   make(taskHeap, 0, 16),
		pending: make(map[harness.Handle]*task),
		clock:   NewClock(),
		signal:  make(chan struct{}, 1),
	}
}

// Push adds fn due at due. It returns 0 when the queue is closed.
func (q *timedQueue) Push(fn func(), due time.Duration) harness.Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}

	t := &task{handle: harness.Handle(q.clock.Next()), due: due, fn: fn}
	heap.Push(&q.tasks, t)
	q.pending[t.handle] = t

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return t.handle
}

// Cancel removes a pending task. It reports false when h is not pending.
func (q *timedQueue) Cancel(h harness.Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.pending[h]
	if !ok {
		return false
	}
	heap.Remove(&q.tasks, t.index)
	delete(q.pending, h)
	return true
}

// PopDue removes and returns the earliest task if it is due at now.
func (q *timedQueue) PopDue(now time.Duration) (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 || q.tasks[0].due > now {
		return nil, false
	}
	t := heap.Pop(&q.tasks).(*task)
	delete(q.pending, t.handle)
	return t, true
}

// Peek returns the due time of the earliest task.
func (q *timedQueue) Peek() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return 0, false
	}
	return q.tasks[0].due, true
}

// Len returns the number of pending tasks.
func (q *timedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Wait returns a channel that signals when a task may have been pushed.
func (q *timedQueue) Wait() <-chan struct{} {
	return q.signal
}

// Close drops every pending task and rejects further pushes.
func (q *timedQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.tasks = q.tasks[:0]
	clear(q.pending)
}

// Reset drops every pending task and accepts pushes again. Handles keep
// increasing across resets.
func (q *timedQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = false
	q.tasks = q.tasks[:0]
	clear(q.pending)
}

// runTask calls fn and converts a panic into an error.
func runTask(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	fn()
	return nil
}

func stringify(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
