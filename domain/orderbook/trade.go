package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one fill. It is immutable once built.
type Trade struct {
	ID         uint64
	Instrument Instrument
	Quantity   uint64
	Price      decimal.Decimal
	CreatedAt  time.Time
}

// NewTrade validates the arguments and assigns the next id from ids.
func NewTrade(ids IDGenerator, instrument Instrument, qty uint64, price decimal.Decimal) (*Trade, error) {
	switch {
	case instrument.IsZero():
		return nil, &ValidationError{Field: "instrument", Reason: "missing"}
	case qty == 0:
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	case !price.IsPositive():
		return nil, &ValidationError{Field: "price", Reason: "must be positive, got " + price.String()}
	}
	return &Trade{
		ID:         ids.Next(),
		Instrument: instrument,
		Quantity:   qty,
		Price:      price,
		CreatedAt:  time.Now(),
	}, nil
}

// String renders "<symbol> <quantity> <price>", the line format used by
// stream sinks.
func (t *Trade) String() string {
	return fmt.Sprintf("%s %d %s", t.Instrument.Symbol, t.Quantity, t.Price.String())
}
