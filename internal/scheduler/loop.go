package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/utest/internal/harness"
)

// Loop is a real-time scheduler. Run executes tasks on the calling
// goroutine; Post, Cancel and Stop may be called from any goroutine.
type Loop struct {
	queue  *timedQueue
	logger *slog.Logger

	mu      sync.Mutex
	epoch   time.Time
	stop    chan struct{}
	stopped bool
}

var _ harness.Scheduler = (*Loop)(nil)

// NewLoop creates a loop ready for Init.
func NewLoop(opts ...Option) *Loop {
	o := buildOptions(opts)
	return &Loop{
		queue:  newTimedQueue(),
		logger: o.logger,
		epoch:  time.Now(),
		stop:   make(chan struct{}),
	}
}

// Init drops pending tasks and restarts the loop's epoch. It revives a
// stopped loop.
func (l *Loop) Init() error {
	l.mu.Lock()
	l.epoch = time.Now()
	if l.stopped {
		l.stop = make(chan struct{})
		l.stopped = false
	}
	l.mu.Unlock()
	l.queue.Reset()
	return nil
}

func (l *Loop) elapsed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Since(l.epoch)
}

// Post schedules task to run after delay. It returns 0 once the loop is
// stopped.
func (l *Loop) Post(task func(), delay time.Duration) harness.Handle {
	if delay < 0 {
		delay = 0
	}
	return l.queue.Push(task, l.elapsed()+delay)
}

// Cancel removes a pending task.
func (l *Loop) Cancel(h harness.Handle) error {
	if !l.queue.Cancel(h) {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return nil
}

// Pending returns the number of tasks waiting to run.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Stop makes Run return and drops all pending tasks. It is safe to call
// from inside a task and more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		close(l.stop)
	}
	l.mu.Unlock()
	l.queue.Close()
}

// Run is RunContext with a background context.
func (l *Loop) Run() error {
	return l.RunContext(context.Background())
}

// RunContext executes tasks as they fall due until Stop is called or ctx is
// done. A panicking task ends the loop with a *PanicError.
func (l *Loop) RunContext(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	stop := l.stop
	l.mu.Unlock()

	l.logger.Debug("scheduler loop starting")
	defer l.logger.Debug("scheduler loop stopped")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if t, ok := l.queue.PopDue(l.elapsed()); ok {
			if err := runTask(t.fn); err != nil {
				l.logger.Error("task failed", "handle", t.handle, "error", err)
				return err
			}
			continue
		}

		var wake <-chan time.Time
		if due, ok := l.queue.Peek(); ok {
			timer.Reset(due - l.elapsed())
			wake = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-l.queue.Wait():
		case <-wake:
		}
		timer.Stop()
	}
}
