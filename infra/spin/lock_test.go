package spin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMutualExclusion(t *testing.T) {
	var (
		l       Lock
		wg      sync.WaitGroup
		counter int
		inside  int
	)
	const workers, rounds = 8, 2000

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				l.Lock()
				inside++
				if inside != 1 {
					panic("two holders")
				}
				counter++
				inside--
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*rounds, counter)
	assert.False(t, l.Locked())
}

func TestTryLock(t *testing.T) {
	var l Lock
	require.True(t, l.TryLock())
	assert.True(t, l.Locked())
	assert.False(t, l.TryLock())
	l.Unlock()
	assert.True(t, l.TryLock())
	l.Unlock()
}

func TestUnlockUnlockedPanics(t *testing.T) {
	var l Lock
	assert.Panics(t, l.Unlock)
}

func TestLockWaitsForHolder(t *testing.T) {
	var l Lock
	l.Lock()

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()

	require.Eventually(t, func() bool { return l.Waiters() == 1 }, time.Second, time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	default:
	}

	l.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}
