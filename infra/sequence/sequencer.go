package sequence

import (
	"sync/atomic"

	"tierbook/domain/orderbook"
)

var _ orderbook.IDGenerator = (*Sequencer)(nil)

// Sequencer generates strictly monotonic ids. Each engine owns its own
// sequencers (one for orders, one for trades); nothing here is global.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next id. Safe for concurrent use.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued id.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
