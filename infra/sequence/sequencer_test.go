package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerStartsAfterSeed(t *testing.T) {
	s := New(41)
	assert.Equal(t, uint64(42), s.Next())
	assert.Equal(t, uint64(43), s.Next())
	assert.Equal(t, uint64(43), s.Current())
}

func TestSequencerConcurrentUnique(t *testing.T) {
	s := New(0)

	const workers, per = 16, 1000
	ids := make(chan uint64, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				ids <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]struct{}, workers*per)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*per)
	assert.Equal(t, uint64(workers*per), s.Current())
}
