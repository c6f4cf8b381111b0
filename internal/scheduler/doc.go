// Package scheduler provides cooperative task queues for the harness.
//
// Two backends implement harness.Scheduler:
//
//   - Loop runs tasks in real time on the goroutine that calls Run. Tasks
//     may be posted from any goroutine; Run returns after Stop or when its
//     context is cancelled.
//   - Virtual runs tasks in virtual time: a posted delay advances a virtual
//     clock instead of sleeping, so a suite with long timeouts completes
//     instantly and always in the same order. Run returns ErrIdle when the
//     queue drains before Stop is called.
//
// Tasks due at the same instant run in the order they were posted. A zero
// delay never runs a task synchronously.
package scheduler
