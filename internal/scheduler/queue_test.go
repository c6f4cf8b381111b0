package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimedQueue_OrdersByDueThenPostOrder(t *testing.T) {
	q := newTimedQueue()
	var order []string
	q.Push(func() { order = append(order, "late") }, 20*time.Millisecond)
	q.Push(func() { order = append(order, "first") }, 0)
	q.Push(func() { order = append(order, "second") }, 0)
	q.Push(func() { order = append(order, "mid") }, 10*time.Millisecond)

	for {
		due, ok := q.Peek()
		if !ok {
			break
		}
		task, ok := q.PopDue(due)
		require.True(t, ok)
		task.fn()
	}
	assert.Equal(t, []string{"first", "second", "mid", "late"}, order)
}

func TestTimedQueue_PopDueRespectsNow(t *testing.T) {
	q := newTimedQueue()
	q.Push(func() {}, 10*time.Millisecond)

	_, ok := q.PopDue(5 * time.Millisecond)
	assert.False(t, ok)

	_, ok = q.PopDue(10 * time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestTimedQueue_Cancel(t *testing.T) {
	q := newTimedQueue()
	h1 := q.Push(func() {}, 0)
	h2 := q.Push(func() {}, 0)
	require.NotZero(t, h1)
	require.NotEqual(t, h1, h2)

	assert.True(t, q.Cancel(h1))
	assert.False(t, q.Cancel(h1), "second cancel of the same handle")
	assert.Equal(t, 1, q.Len())

	task, ok := q.PopDue(0)
	require.True(t, ok)
	assert.Equal(t, h2, task.handle)
}

func TestTimedQueue_CloseRejectsPush(t *testing.T) {
	q := newTimedQueue()
	q.Push(func() {}, 0)
	q.Close()

	assert.Equal(t, 0, q.Len())
	assert.Zero(t, q.Push(func() {}, 0))

	q.Reset()
	assert.NotZero(t, q.Push(func() {}, 0))
}

func TestTimedQueue_HandlesKeepIncreasingAcrossReset(t *testing.T) {
	q := newTimedQueue()
	h1 := q.Push(func() {}, 0)
	q.Reset()
	h2 := q.Push(func() {}, 0)
	assert.Greater(t, h2, h1)
}

func TestTimedQueue_PushSignals(t *testing.T) {
	q := newTimedQueue()
	q.Push(func() {}, 0)

	select {
	case <-q.Wait():
	default:
		t.Fatal("push did not signal")
	}
}

func TestRunTask_RecoversPanic(t *testing.T) {
	err := runTask(func() { panic("boom") })

	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "boom", pe.Value)
	assert.Contains(t, err.Error(), "task panicked: boom")

	assert.NoError(t, runTask(func() {}))
}
