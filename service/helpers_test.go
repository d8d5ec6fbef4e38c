package service_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tierbook/domain/orderbook"
	"tierbook/infra/sequence"
	"tierbook/service"
)

type harness struct {
	inst     orderbook.Instrument
	orderIDs *sequence.Sequencer
	sink     *orderbook.InMemorySink
	c        *service.Collections
	book     *service.Book
	factory  *service.ProcessorFactory
	pool     *ants.Pool
}

func newHarness(t testing.TB, symbol string) *harness {
	t.Helper()
	inst := orderbook.MustInstrument(symbol)
	sink := orderbook.NewInMemorySink()

	c, err := service.NewCollections(inst, orderbook.NewMatcher(sequence.New(0)), orderbook.NewTradeLedger(inst, sink))
	require.NoError(t, err)

	pool, err := service.NewWorkerPool(8, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	book, err := service.NewBook(c, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(book.Close)

	return &harness{
		inst:     inst,
		orderIDs: sequence.New(0),
		sink:     sink,
		c:        c,
		book:     book,
		factory:  service.NewProcessorFactory(pool, nil, nil),
		pool:     pool,
	}
}

func (h *harness) order(t testing.TB, side orderbook.Side, price int64, qty uint64) *orderbook.Order {
	o, err := orderbook.NewOrder(h.orderIDs, h.inst, orderbook.GoodUntilCancelled, side, decimal.NewFromInt(price), qty)
	require.NoError(t, err)
	return o
}

func (h *harness) use(tier service.Tier) {
	h.book.SetProcessor(h.factory.New(tier, h.c))
}

// accounting drains the book and checks that every submitted unit of
// quantity either rests or was consumed by exactly one trade on each side,
// with no order resting twice and no trade recorded twice.
func (h *harness) accounting(t *testing.T, submittedQty uint64) {
	t.Helper()
	h.book.Flush()

	seen := make(map[uint64]bool)
	var restingQty uint64
	for _, list := range []*orderbook.OrderList{h.c.Buys, h.c.Sells} {
		for _, o := range list.Snapshot() {
			require.False(t, seen[o.ID], "order %d rests twice", o.ID)
			seen[o.ID] = true
			restingQty += o.Quantity()
		}
	}

	tradeIDs := make(map[uint64]bool)
	var tradedQty uint64
	for _, tr := range h.sink.Trades() {
		require.False(t, tradeIDs[tr.ID], "trade %d recorded twice", tr.ID)
		tradeIDs[tr.ID] = true
		tradedQty += tr.Quantity
	}
	require.Equal(t, h.c.Trades.Quantity(), tradedQty)
	require.Equal(t, submittedQty, restingQty+2*tradedQty)
}

var errSinkDown = errors.New("sink down")

// flakySink fails or panics on chosen trade numbers and records the rest.
type flakySink struct {
	mu      sync.Mutex
	n       int
	failOn  map[int]bool
	panicOn map[int]bool
	trades  []*orderbook.Trade
}

func (s *flakySink) Add(tr *orderbook.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if s.panicOn[s.n] {
		panic("sink exploded")
	}
	if s.failOn[s.n] {
		return errSinkDown
	}
	s.trades = append(s.trades, tr)
	return nil
}
