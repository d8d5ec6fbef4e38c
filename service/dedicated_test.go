package service_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tierbook/domain/orderbook"
	"tierbook/service"
)

type failureLog struct {
	mu   sync.Mutex
	errs []*service.ProcessingError
}

func (l *failureLog) report(err *service.ProcessingError) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *failureLog) all() []*service.ProcessingError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*service.ProcessingError(nil), l.errs...)
}

func TestDedicatedPreservesSubmissionOrder(t *testing.T) {
	h := newHarness(t, "MSFT")
	d := service.NewDedicated(h.c, (&failureLog{}).report, nil)

	// Ten sells at descending prices, then one buy that sweeps them all.
	// Trades must follow price priority, which only holds if every sell
	// rested before the buy ran.
	for i := 0; i < 10; i++ {
		require.NoError(t, d.InsertOrder(h.order(t, orderbook.Sell, int64(100-i), 1)))
	}
	require.NoError(t, d.InsertOrder(h.order(t, orderbook.Buy, 100, 10)))
	d.Stop()

	trades := h.sink.Trades()
	require.Len(t, trades, 10)
	for i, tr := range trades {
		assert.True(t, tr.Price.Equal(decimal.NewFromInt(int64(91+i))), "trade %d at %s", i, tr.Price)
	}
}

func TestDedicatedStopDrainsQueue(t *testing.T) {
	h := newHarness(t, "MSFT")
	d := service.NewDedicated(h.c, (&failureLog{}).report, nil)
	assert.Equal(t, service.Active, d.State())

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, d.InsertOrder(h.order(t, orderbook.Buy, int64(1+i%7), 1)))
	}
	d.Stop()

	assert.Equal(t, service.Stopped, d.State())
	assert.Equal(t, n, h.c.Buys.Len())
	assert.Zero(t, h.book.Pending())
}

func TestDedicatedRejectsAfterStop(t *testing.T) {
	h := newHarness(t, "MSFT")
	d := service.NewDedicated(h.c, (&failureLog{}).report, nil)
	d.Stop()
	d.Stop()

	err := d.InsertOrder(h.order(t, orderbook.Buy, 1, 1))
	require.ErrorIs(t, err, service.ErrProcessorStopped)
	assert.Zero(t, h.c.Buys.Len())
}

func TestDedicatedIsolatesFailures(t *testing.T) {
	h := newHarness(t, "MSFT")
	sink := &flakySink{failOn: map[int]bool{1: true}, panicOn: map[int]bool{2: true}}
	h.c.Trades.SetSink(sink)
	failures := &failureLog{}
	d := service.NewDedicated(h.c, failures.report, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.InsertOrder(h.order(t, orderbook.Sell, 50, 1)))
	}
	// First buy hits the failing trade, second the panicking one, third
	// proves the consumer survived both.
	var buys []*orderbook.Order
	for i := 0; i < 3; i++ {
		o := h.order(t, orderbook.Buy, 50, 1)
		buys = append(buys, o)
		require.NoError(t, d.InsertOrder(o))
	}
	d.Stop()

	errs := failures.all()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], errSinkDown)
	assert.Equal(t, service.TierDedicated, errs[0].Tier)
	assert.Equal(t, buys[0].ID, errs[0].OrderID)
	assert.Contains(t, errs[1].Error(), "panic: sink exploded")
	assert.Equal(t, buys[1].ID, errs[1].OrderID)
	assert.Len(t, sink.trades, 1)
	assert.Zero(t, h.c.Sells.Len())
}

func TestFactoryReportLogs(t *testing.T) {
	h := newHarness(t, "MSFT")
	f := service.NewProcessorFactory(h.pool, zaptest.NewLogger(t), nil)
	h.c.Trades.SetSink(&flakySink{failOn: map[int]bool{1: true}})

	d := f.New(service.TierDedicated, h.c)
	require.NoError(t, d.InsertOrder(h.order(t, orderbook.Sell, 50, 1)))
	require.NoError(t, d.InsertOrder(h.order(t, orderbook.Buy, 50, 1)))
	d.Stop()
	assert.Equal(t, uint64(0), h.c.Trades.Count())
}
