package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/autotap/internal/engine"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	c := NewDeterministicClock()
	assert.Equal(t, Epoch, c.Peek())
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(DefaultStep), c.Now())
}

func TestDeterministicClock_AdvanceAndReset(t *testing.T) {
	c := NewDeterministicClockAt(Epoch, 0)
	c.Advance(time.Minute)
	assert.Equal(t, Epoch.Add(time.Minute), c.Now())
	assert.Equal(t, Epoch.Add(time.Minute), c.Now(), "zero step never advances")

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestDeterministicClock_ConcurrentReadingsDistinct(t *testing.T) {
	c := NewDeterministicClock()
	const n = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := c.Now()
			mu.Lock()
			seen[now] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, Epoch.Add(n*DefaultStep), c.Peek())
}

func TestSequentialIDs(t *testing.T) {
	var gen engine.SessionIDGenerator = NewSequentialIDs("")
	assert.Equal(t, "session-1", gen.Generate())
	assert.Equal(t, "session-2", gen.Generate())

	custom := NewSequentialIDs("run")
	assert.Equal(t, "run-1", custom.Generate())
}
