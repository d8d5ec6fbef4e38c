package orderbook

import (
	"errors"
	"fmt"
)

var (
	// ErrInstrumentMismatch is returned when an order or trade reaches a
	// collection bound to a different instrument.
	ErrInstrumentMismatch = errors.New("orderbook: instrument mismatch")

	// ErrWrongSide is returned when an order is inserted into the list
	// restricted to the opposite side.
	ErrWrongSide = errors.New("orderbook: wrong side")
)

// ValidationError reports an order or trade that cannot be constructed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("orderbook: invalid %s: %s", e.Field, e.Reason)
}

func mismatch(want, got Instrument) error {
	return fmt.Errorf("%w: bound to %q, got %q", ErrInstrumentMismatch, want.Symbol, got.Symbol)
}
