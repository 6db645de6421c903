package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizeWithoutReaders(t *testing.T) {
	d := NewDomain()
	require.False(t, d.Safe(0))

	d.Synchronize()

	assert.Equal(t, uint64(1), d.Epoch())
	assert.Equal(t, uint64(1), d.GracePeriods())
	assert.True(t, d.Safe(0))
	assert.False(t, d.Safe(1))
}

func TestSynchronizeWaitsForPreexistingReader(t *testing.T) {
	d := NewDomain()
	g := d.Enter()

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("grace period ended while a reader was still active")
	case <-time.After(50 * time.Millisecond):
	}

	g.Exit()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("grace period did not end after the reader exited")
	}
}

func TestSynchronizeIgnoresLaterReaders(t *testing.T) {
	d := NewDomain()
	early := d.Enter()

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	require.Eventually(t, func() bool { return d.Epoch() == 1 }, time.Second, time.Millisecond)
	late := d.Enter()
	defer late.Exit()

	early.Exit()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("grace period waited for a reader that entered after the flip")
	}
	assert.Equal(t, int64(1), d.Readers())
}

func TestEnterExitConcurrent(t *testing.T) {
	d := NewDomain()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := d.Enter()
				g.Exit()
			}
		}()
	}

	for i := 0; i < 100; i++ {
		d.Synchronize()
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, int64(0), d.Readers())
	assert.Equal(t, uint64(100), d.GracePeriods())
}
