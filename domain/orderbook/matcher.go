package orderbook

import (
	"errors"
	"fmt"
)

// Matcher crosses an aggressor order against the opposite side.
// It holds no lock of its own: callers must keep the opposite list from
// being mutated by anyone else for the whole call.
type Matcher struct {
	tradeIDs IDGenerator
}

func NewMatcher(tradeIDs IDGenerator) *Matcher {
	return &Matcher{tradeIDs: tradeIDs}
}

// TryMatch fills incoming against every resting order on opposite whose
// price crosses it, best priority first, and records one trade per fill
// at the resting order's price. Fully filled resting orders are removed.
//
// It reports false when nothing crossed, in which case incoming is left
// untouched. A true result with incoming.Quantity() > 0 is a partial fill;
// the caller rests the remainder.
func (m *Matcher) TryMatch(incoming *Order, opposite *OrderList, ledger *TradeLedger) (bool, error) {
	if incoming.Instrument != opposite.Instrument() {
		return false, mismatch(opposite.Instrument(), incoming.Instrument)
	}
	if incoming.Side == opposite.Side() {
		return false, fmt.Errorf("%w: %s order against %s list", ErrWrongSide, incoming.Side, opposite.Side())
	}

	candidates := opposite.FindAll(crosses(incoming))
	if len(candidates) == 0 {
		return false, nil
	}

	// A failed trade record never stops the walk: the fill stands and the
	// remaining candidates are still matched, so whatever rests afterwards
	// cannot cross.
	var errs []error
	for _, resting := range candidates {
		remaining := incoming.Quantity()
		if remaining == 0 {
			break
		}
		fill := min(resting.Quantity(), remaining)
		if fill == 0 {
			continue
		}

		resting.fill(fill)
		incoming.fill(fill)
		if resting.Quantity() == 0 {
			opposite.Remove(resting)
		}

		trade, err := NewTrade(m.tradeIDs, incoming.Instrument, fill, resting.Price)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := ledger.AddTrade(trade); err != nil {
			errs = append(errs, fmt.Errorf("record trade %d: %w", trade.ID, err))
		}
	}
	return true, errors.Join(errs...)
}

func crosses(incoming *Order) func(*Order) bool {
	if incoming.Side == Buy {
		return func(resting *Order) bool { return resting.Price.LessThanOrEqual(incoming.Price) }
	}
	return func(resting *Order) bool { return resting.Price.GreaterThanOrEqual(incoming.Price) }
}
