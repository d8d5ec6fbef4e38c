package service

import (
	"errors"
	"fmt"
	"sync"

	"tierbook/domain/orderbook"
)

// Collections is the state every processor of one book shares: both
// resting lists, the ledger, and the match guard that serializes
// match-then-rest across all of them. Swapping processors never copies or
// moves any of it.
type Collections struct {
	Instrument orderbook.Instrument
	Buys       *orderbook.OrderList
	Sells      *orderbook.OrderList
	Trades     *orderbook.TradeLedger

	matcher  *orderbook.Matcher
	mu       sync.Mutex
	inflight inflight
}

// NewCollections builds empty lists for instrument around ledger.
func NewCollections(instrument orderbook.Instrument, matcher *orderbook.Matcher, ledger *orderbook.TradeLedger) (*Collections, error) {
	if instrument.IsZero() {
		return nil, &orderbook.ValidationError{Field: "instrument", Reason: "missing"}
	}
	if matcher == nil {
		return nil, errors.New("service: nil matcher")
	}
	if ledger == nil {
		ledger = orderbook.NewTradeLedger(instrument, nil)
	}
	if ledger.Instrument() != instrument {
		return nil, fmt.Errorf("%w: ledger bound to %q, book to %q",
			orderbook.ErrInstrumentMismatch, ledger.Instrument().Symbol, instrument.Symbol)
	}
	return &Collections{
		Instrument: instrument,
		Buys:       orderbook.NewBuyOrders(instrument),
		Sells:      orderbook.NewSellOrders(instrument),
		Trades:     ledger,
		matcher:    matcher,
	}, nil
}

// process runs match-then-rest for o under the match guard. Whatever is
// left of o after matching rests on its own side, even when recording a
// trade failed. A panic skips the rest step; the caller recovers it and
// reports the order instead.
func (c *Collections) process(o *orderbook.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	own, opposite := c.Buys, c.Sells
	if o.Side == orderbook.Sell {
		own, opposite = c.Sells, c.Buys
	}

	_, matchErr := c.matcher.TryMatch(o, opposite, c.Trades)
	if o.Quantity() > 0 {
		if err := own.Insert(o); err != nil {
			return errors.Join(matchErr, err)
		}
	}
	return matchErr
}

// Snapshot copies both resting lists under the match guard, so no order
// is caught halfway through a match. Orders still queued on an
// asynchronous processor are not included.
func (c *Collections) Snapshot() (buys, sells []*orderbook.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Buys.Snapshot(), c.Sells.Snapshot()
}

// Rest places o on its side without matching it. It is for restoring a
// snapshot of an uncrossed book.
func (c *Collections) Rest(o *orderbook.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o != nil && o.Side == orderbook.Sell {
		return c.Sells.Insert(o)
	}
	return c.Buys.Insert(o)
}
