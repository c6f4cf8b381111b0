package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/utest/internal/harness"
)

// Virtual is a scheduler with a virtual clock. Run pops tasks in due
// order and jumps the clock to each task's due time, so delays cost
// nothing and runs are reproducible.
type Virtual struct {
	queue     *timedQueue
	logger    *slog.Logger
	stepLimit int

	mu      sync.Mutex
	now     time.Duration
	steps   int
	stopped bool
}

var _ harness.Scheduler = (*Virtual)(nil)

// NewVirtual creates a virtual-time scheduler at time zero.
func NewVirtual(opts ...Option) *Virtual {
	o := buildOptions(opts)
	return &Virtual{
		queue:     newTimedQueue(),
		logger:    o.logger,
		stepLimit: o.stepLimit,
	}
}

// Init rewinds the clock to zero and drops pending tasks.
func (v *Virtual) Init() error {
	v.mu.Lock()
	v.now = 0
	v.steps = 0
	v.stopped = false
	v.mu.Unlock()
	v.queue.Reset()
	return nil
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Steps returns the number of tasks run since Init.
func (v *Virtual) Steps() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.steps
}

// Post schedules task delay after the current virtual time.
func (v *Virtual) Post(task func(), delay time.Duration) harness.Handle {
	if delay < 0 {
		delay = 0
	}
	return v.queue.Push(task, v.Now()+delay)
}

// Cancel removes a pending task.
func (v *Virtual) Cancel(h harness.Handle) error {
	if !v.queue.Cancel(h) {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return nil
}

// Pending returns the number of tasks waiting to run.
func (v *Virtual) Pending() int {
	return v.queue.Len()
}

// Stop makes Run return nil after the current task.
func (v *Virtual) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
	v.queue.Close()
}

// Run executes tasks until Stop is called. It returns ErrIdle when the
// queue drains first, ErrStepLimit when the step limit is hit and a
// *PanicError when a task panics.
func (v *Virtual) Run() error {
	v.logger.Debug("virtual scheduler starting")
	for {
		v.mu.Lock()
		if v.stopped {
			v.mu.Unlock()
			v.logger.Debug("virtual scheduler stopped", "now", v.now, "steps", v.steps)
			return nil
		}
		v.mu.Unlock()

		due, ok := v.queue.Peek()
		if !ok {
			v.logger.Debug("virtual scheduler idle", "now", v.Now())
			return ErrIdle
		}
		t, ok := v.queue.PopDue(due)
		if !ok {
			continue
		}

		v.mu.Lock()
		if t.due > v.now {
			v.now = t.due
		}
		v.steps++
		steps := v.steps
		v.mu.Unlock()

		if v.stepLimit > 0 && steps > v.stepLimit {
			return fmt.Errorf("%w: %d", ErrStepLimit, v.stepLimit)
		}
		if err := runTask(t.fn); err != nil {
			v.logger.Error("task failed", "handle", t.handle, "error", err)
			return err
		}
	}
}
