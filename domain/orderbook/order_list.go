package orderbook

import (
	"fmt"
	"sync"

	"github.com/tidwall/btree"
)

// Priority reports whether a ranks ahead of b.
type Priority func(a, b *Order) bool

// BuyPriority ranks the highest price first, then the earliest order.
func BuyPriority(a, b *Order) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c > 0
	}
	return earlier(a, b)
}

// SellPriority ranks the lowest price first, then the earliest order.
func SellPriority(a, b *Order) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	return earlier(a, b)
}

// earlier breaks equal creation times by id so no two distinct orders
// ever compare equal.
func earlier(a, b *Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// OrderList holds the resting orders of one side of one instrument,
// always sorted by the side's priority. Every read and write goes
// through the list's own lock; reads hand back copies.
type OrderList struct {
	instrument Instrument
	side       Side

	mu   sync.RWMutex
	tree *btree.BTreeG[*Order]
}

// NewBuyOrders returns the bid side list for instrument.
func NewBuyOrders(instrument Instrument) *OrderList {
	return newOrderList(instrument, Buy, BuyPriority)
}

// NewSellOrders returns the ask side list for instrument.
func NewSellOrders(instrument Instrument) *OrderList {
	return newOrderList(instrument, Sell, SellPriority)
}

func newOrderList(instrument Instrument, side Side, less Priority) *OrderList {
	return &OrderList{
		instrument: instrument,
		side:       side,
		tree:       btree.NewBTreeGOptions[*Order](less, btree.Options{NoLocks: true}),
	}
}

func (l *OrderList) Instrument() Instrument { return l.instrument }
func (l *OrderList) Side() Side             { return l.side }

// Insert rests o at its priority position.
func (l *OrderList) Insert(o *Order) error {
	if o == nil {
		return &ValidationError{Field: "order", Reason: "nil"}
	}
	if o.Instrument != l.instrument {
		return mismatch(l.instrument, o.Instrument)
	}
	if o.Side != l.side {
		return fmt.Errorf("%w: %s order into %s list", ErrWrongSide, o.Side, l.side)
	}

	l.mu.Lock()
	l.tree.Set(o)
	l.mu.Unlock()
	return nil
}

// Remove takes o out of the list. Only orders known to be resident should
// be removed; the result reports whether o was found.
func (l *OrderList) Remove(o *Order) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tree.Delete(o)
	return ok
}

// Contains reports whether this exact order is resting in the list.
func (l *OrderList) Contains(o *Order) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	got, ok := l.tree.Get(o)
	return ok && got == o
}

func (l *OrderList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Len()
}

// At returns the i-th order in priority order.
func (l *OrderList) At(i int) (*Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= l.tree.Len() {
		return nil, false
	}
	return l.tree.GetAt(i)
}

// FindAll returns, in priority order, a point-in-time copy of every order
// for which keep returns true.
func (l *OrderList) FindAll(keep func(*Order) bool) []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Order
	l.tree.Scan(func(o *Order) bool {
		if keep(o) {
			out = append(out, o)
		}
		return true
	})
	return out
}

// Snapshot returns a point-in-time copy of the whole list.
func (l *OrderList) Snapshot() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Order, 0, l.tree.Len())
	l.tree.Scan(func(o *Order) bool {
		out = append(out, o)
		return true
	})
	return out
}
