package orderbook_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tierbook/domain/orderbook"
	"tierbook/infra/sequence"
)

type fixture struct {
	inst     orderbook.Instrument
	orderIDs *sequence.Sequencer
	matcher  *orderbook.Matcher
	buys     *orderbook.OrderList
	sells    *orderbook.OrderList
	sink     *orderbook.InMemorySink
	ledger   *orderbook.TradeLedger
}

func newFixture(t *testing.T, symbol string) *fixture {
	t.Helper()
	inst := orderbook.MustInstrument(symbol)
	sink := orderbook.NewInMemorySink()
	return &fixture{
		inst:     inst,
		orderIDs: sequence.New(0),
		matcher:  orderbook.NewMatcher(sequence.New(0)),
		buys:     orderbook.NewBuyOrders(inst),
		sells:    orderbook.NewSellOrders(inst),
		sink:     sink,
		ledger:   orderbook.NewTradeLedger(inst, sink),
	}
}

func (f *fixture) order(t *testing.T, side orderbook.Side, price int64, qty uint64) *orderbook.Order {
	t.Helper()
	o, err := orderbook.NewOrder(f.orderIDs, f.inst, orderbook.GoodUntilCancelled, side, decimal.NewFromInt(price), qty)
	require.NoError(t, err)
	return o
}

func (f *fixture) rest(t *testing.T, side orderbook.Side, price int64, qty uint64) *orderbook.Order {
	t.Helper()
	o := f.order(t, side, price, qty)
	list := f.buys
	if side == orderbook.Sell {
		list = f.sells
	}
	require.NoError(t, list.Insert(o))
	return o
}
