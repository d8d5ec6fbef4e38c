package orderbook_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierbook/domain/orderbook"
	"tierbook/infra/sequence"
)

func TestNewOrderAssignsIncreasingIDs(t *testing.T) {
	ids := sequence.New(0)
	inst := orderbook.MustInstrument("MSFT")

	a, err := orderbook.NewOrder(ids, inst, orderbook.GoodUntilCancelled, orderbook.Buy, decimal.NewFromInt(100), 10)
	require.NoError(t, err)
	b, err := orderbook.NewOrder(ids, inst, orderbook.LimitPrice, orderbook.Sell, decimal.NewFromInt(101), 5)
	require.NoError(t, err)

	assert.Less(t, a.ID, b.ID)
	assert.Equal(t, uint64(10), a.Quantity())
	assert.False(t, a.CreatedAt.IsZero())
	assert.False(t, b.CreatedAt.Before(a.CreatedAt))
}

func TestNewOrderValidation(t *testing.T) {
	ids := sequence.New(0)
	inst := orderbook.MustInstrument("MSFT")

	cases := []struct {
		name  string
		inst  orderbook.Instrument
		side  orderbook.Side
		price decimal.Decimal
		qty   uint64
		field string
	}{
		{"missing instrument", orderbook.Instrument{}, orderbook.Buy, decimal.NewFromInt(1), 1, "instrument"},
		{"zero price", inst, orderbook.Buy, decimal.Zero, 1, "price"},
		{"negative price", inst, orderbook.Sell, decimal.NewFromInt(-5), 1, "price"},
		{"zero quantity", inst, orderbook.Sell, decimal.NewFromInt(5), 0, "quantity"},
		{"bad side", inst, orderbook.Side(7), decimal.NewFromInt(5), 1, "side"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := orderbook.NewOrder(ids, tc.inst, orderbook.GoodUntilCancelled, tc.side, tc.price, tc.qty)
			require.Error(t, err)
			assert.Nil(t, o)

			var verr *orderbook.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNewTradeValidation(t *testing.T) {
	ids := sequence.New(0)
	inst := orderbook.MustInstrument("GOOG")

	_, err := orderbook.NewTrade(ids, inst, 0, decimal.NewFromInt(10))
	assert.Error(t, err)
	_, err = orderbook.NewTrade(ids, inst, 1, decimal.Zero)
	assert.Error(t, err)
	_, err = orderbook.NewTrade(ids, orderbook.Instrument{}, 1, decimal.NewFromInt(10))
	assert.Error(t, err)

	tr, err := orderbook.NewTrade(ids, inst, 100, decimal.RequireFromString("90.5"))
	require.NoError(t, err)
	assert.Equal(t, "GOOG 100 90.5", tr.String())
}

func TestNewInstrumentRejectsBlank(t *testing.T) {
	_, err := orderbook.NewInstrument("  ")
	assert.Error(t, err)

	a := orderbook.MustInstrument("MSFT")
	b := orderbook.MustInstrument("MSFT")
	assert.True(t, a == b)
}

func TestRestoreOrderKeepsIdentity(t *testing.T) {
	inst := orderbook.MustInstrument("MSFT")
	at := time.Unix(1700000000, 0)

	o, err := orderbook.RestoreOrder(77, inst, orderbook.LimitPrice, orderbook.Sell, decimal.NewFromInt(12), 5, at)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), o.ID)
	assert.Equal(t, uint64(5), o.Quantity())
	assert.True(t, o.CreatedAt.Equal(at))

	_, err = orderbook.RestoreOrder(0, inst, orderbook.LimitPrice, orderbook.Sell, decimal.NewFromInt(12), 5, at)
	assert.Error(t, err)
	_, err = orderbook.RestoreOrder(1, inst, orderbook.LimitPrice, orderbook.Sell, decimal.NewFromInt(12), 0, at)
	assert.Error(t, err)
}
