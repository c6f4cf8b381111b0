package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Equal(t, uint64(0), c.Current())
}

func TestClock_NextIncrements(t *testing.T) {
	c := NewClock()
	assert.Equal(t, uint64(1), c.Next())
	assert.Equal(t, uint64(2), c.Next())
	assert.Equal(t, uint64(2), c.Current())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const calls = 100

	var wg sync.WaitGroup
	seqs := make(chan uint64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[uint64]bool)
	for s := range seqs {
		assert.False(t, seen[s], "seq %d issued twice", s)
		seen[s] = true
	}
	assert.Len(t, seen, goroutines*calls)
}
