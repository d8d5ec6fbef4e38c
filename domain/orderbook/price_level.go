package orderbook

import "github.com/shopspring/decimal"

// PriceLevel aggregates the resting orders at a single price.
type PriceLevel struct {
	Price      decimal.Decimal
	TotalQty   uint64
	OrderCount int
}

func (p *PriceLevel) add(o *Order) {
	p.TotalQty += o.Quantity()
	p.OrderCount++
}

// Levels folds the list into price levels, best first. depth <= 0 returns
// every level.
func (l *OrderList) Levels(depth int) []PriceLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []PriceLevel
	l.tree.Scan(func(o *Order) bool {
		if n := len(out); n > 0 && out[n-1].Price.Equal(o.Price) {
			out[n-1].add(o)
			return true
		}
		if depth > 0 && len(out) == depth {
			return false
		}
		lvl := PriceLevel{Price: o.Price}
		lvl.add(o)
		out = append(out, lvl)
		return true
	})
	return out
}
