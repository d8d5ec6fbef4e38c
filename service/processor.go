package service

import (
	"errors"
	"fmt"

	"tierbook/domain/orderbook"
)

// Tier is an execution strategy class.
type Tier int

const (
	TierSynchronous Tier = iota
	TierPooled
	TierDedicated
)

func (t Tier) String() string {
	switch t {
	case TierSynchronous:
		return "synchronous"
	case TierPooled:
		return "pooled"
	case TierDedicated:
		return "dedicated"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Processor is an execution strategy for one book's orders.
type Processor interface {
	// InsertOrder matches o against the opposite side and rests any
	// remainder, now or later depending on the strategy.
	InsertOrder(o *orderbook.Order) error

	// Tier names the strategy.
	Tier() Tier

	// Stop retires the processor. It returns once every order the
	// processor accepted has been processed. Stateless strategies return
	// immediately.
	Stop()
}

// ErrProcessorStopped is returned by a processor that was already retired.
var ErrProcessorStopped = errors.New("service: processor stopped")

// ProcessingError is an asynchronous match-then-rest failure for a single
// order. The order is not retried.
type ProcessingError struct {
	OrderID    uint64
	Instrument orderbook.Instrument
	Tier       Tier
	Err        error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("service: %s order %d on %s: %v", e.Tier, e.OrderID, e.Instrument.Symbol, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// FailureHandler receives isolated asynchronous failures.
type FailureHandler func(*ProcessingError)

// runIsolated processes o and hands any error or panic to report instead
// of letting it reach the worker that runs it.
func runIsolated(c *Collections, o *orderbook.Order, tier Tier, report FailureHandler) {
	defer func() {
		if r := recover(); r != nil {
			report(&ProcessingError{OrderID: o.ID, Instrument: c.Instrument, Tier: tier, Err: fmt.Errorf("panic: %v", r)})
		}
	}()
	if err := c.process(o); err != nil {
		report(&ProcessingError{OrderID: o.ID, Instrument: c.Instrument, Tier: tier, Err: err})
	}
}
