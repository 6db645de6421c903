package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerResumes(t *testing.T) {
	s := New(41)
	assert.Equal(t, uint64(42), s.Next())
	assert.Equal(t, uint64(42), s.Current())
}

func TestSequencerConcurrentUnique(t *testing.T) {
	s := New(0)
	var (
		mu   sync.Mutex
		seen = map[uint64]bool{}
		wg   sync.WaitGroup
	)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				v := s.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
	assert.Equal(t, uint64(1000), s.Current())
}
