package orderbook

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

type Side int
type OrderType int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) valid() bool { return s == Buy || s == Sell }

// Order types are carried on the order but not enforced by the matcher:
// every order rests until filled.
const (
	GoodUntilCancelled OrderType = iota
	GoodUntilDate
	ImmediateOrCancel
	LimitPrice
	MarketPrice
	StopLoss
)

var orderTypeNames = [...]string{
	GoodUntilCancelled: "GTC",
	GoodUntilDate:      "GTD",
	ImmediateOrCancel:  "IOC",
	LimitPrice:         "LIMIT",
	MarketPrice:        "MARKET",
	StopLoss:           "STOP_LOSS",
}

func (t OrderType) String() string {
	if t >= 0 && int(t) < len(orderTypeNames) {
		return orderTypeNames[t]
	}
	return fmt.Sprintf("OrderType(%d)", int(t))
}

// Order is a buy or sell intent. Everything except the remaining quantity
// is fixed at construction.
type Order struct {
	ID         uint64
	Instrument Instrument
	Side       Side
	Type       OrderType
	Price      decimal.Decimal
	CreatedAt  time.Time

	quantity atomic.Uint64
}

// NewOrder validates the arguments and assigns the next id from ids.
func NewOrder(
	ids IDGenerator,
	instrument Instrument,
	otype OrderType,
	side Side,
	price decimal.Decimal,
	qty uint64,
) (*Order, error) {
	if err := validateOrder(instrument, side, price, qty); err != nil {
		return nil, err
	}
	return newOrder(ids.Next(), instrument, otype, side, price, qty, time.Now()), nil
}

// RestoreOrder rebuilds a resting order with its original identity, for
// loading a book snapshot.
func RestoreOrder(
	id uint64,
	instrument Instrument,
	otype OrderType,
	side Side,
	price decimal.Decimal,
	qty uint64,
	createdAt time.Time,
) (*Order, error) {
	if id == 0 {
		return nil, &ValidationError{Field: "id", Reason: "missing"}
	}
	if err := validateOrder(instrument, side, price, qty); err != nil {
		return nil, err
	}
	return newOrder(id, instrument, otype, side, price, qty, createdAt), nil
}

func validateOrder(instrument Instrument, side Side, price decimal.Decimal, qty uint64) error {
	switch {
	case instrument.IsZero():
		return &ValidationError{Field: "instrument", Reason: "missing"}
	case !side.valid():
		return &ValidationError{Field: "side", Reason: side.String()}
	case !price.IsPositive():
		return &ValidationError{Field: "price", Reason: "must be positive, got " + price.String()}
	case qty == 0:
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	return nil
}

func newOrder(id uint64, instrument Instrument, otype OrderType, side Side, price decimal.Decimal, qty uint64, createdAt time.Time) *Order {
	o := &Order{
		ID:         id,
		Instrument: instrument,
		Side:       side,
		Type:       otype,
		Price:      price,
		CreatedAt:  createdAt,
	}
	o.quantity.Store(qty)
	return o
}

// Quantity returns the unfilled quantity.
func (o *Order) Quantity() uint64 {
	return o.quantity.Load()
}

// fill consumes qty from the remaining quantity. Callers never pass more
// than Quantity().
func (o *Order) fill(qty uint64) {
	o.quantity.Add(^(qty - 1))
}

func (o *Order) String() string {
	return fmt.Sprintf("#%d %s %s %d@%s", o.ID, o.Side, o.Instrument.Symbol, o.Quantity(), o.Price)
}
