package service

import "tierbook/domain/orderbook"

// Synchronous runs match-then-rest on the calling goroutine.
type Synchronous struct {
	c *Collections
}

func NewSynchronous(c *Collections) *Synchronous {
	return &Synchronous{c: c}
}

// InsertOrder returns once o has been matched and any remainder rested.
// Errors propagate to the caller.
func (s *Synchronous) InsertOrder(o *orderbook.Order) error {
	return s.c.process(o)
}

func (s *Synchronous) Tier() Tier { return TierSynchronous }
func (s *Synchronous) Stop()      {}
