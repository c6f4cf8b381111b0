package harness

import "time"

// Handle identifies a posted task. The zero Handle means "no task".
type Handle uint64

// Scheduler is the cooperative task queue the harness runs on.
//
// Post must never run task synchronously, not even with a zero delay: the
// harness relies on every step yielding back to the scheduler. A zero
// Handle from Post reports that the task could not be scheduled.
type Scheduler interface {
	Init() error
	Post(task func(), delay time.Duration) Handle
	Cancel(h Handle) error
	Run() error
}

// completer is implemented by schedulers that can be partially defined.
type completer interface {
	Complete() bool
}

// SchedulerFuncs adapts four plain functions to a Scheduler.
type SchedulerFuncs struct {
	InitFunc   func() error
	PostFunc   func(task func(), delay time.Duration) Handle
	CancelFunc func(h Handle) error
	RunFunc    func() error
}

// Complete reports whether all four operations are set.
func (s SchedulerFuncs) Complete() bool {
	return s.InitFunc != nil && s.PostFunc != nil && s.CancelFunc != nil && s.RunFunc != nil
}

func (s SchedulerFuncs) Init() error { return s.InitFunc() }

func (s SchedulerFuncs) Post(task func(), delay time.Duration) Handle {
	return s.PostFunc(task, delay)
}

func (s SchedulerFuncs) Cancel(h Handle) error { return s.CancelFunc(h) }

func (s SchedulerFuncs) Run() error { return s.RunFunc() }

// schedulerComplete reports whether s can be used by the harness.
func schedulerComplete(s Scheduler) bool {
	if s == nil {
		return false
	}
	if c, ok := s.(completer); ok {
		return c.Complete()
	}
	return true
}
