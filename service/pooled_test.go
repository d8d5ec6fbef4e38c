package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierbook/domain/orderbook"
	"tierbook/service"
)

func TestPooledProcessesEveryOrder(t *testing.T) {
	h := newHarness(t, "AAPL")
	p := service.NewPooled(h.c, h.pool, (&failureLog{}).report)
	t.Cleanup(p.Stop)
	assert.Equal(t, service.TierPooled, p.Tier())

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, p.InsertOrder(h.order(t, orderbook.Buy, int64(1+i%10), 1)))
		}(i)
	}
	wg.Wait()
	h.book.Flush()

	assert.Equal(t, 200, h.c.Buys.Len())
}

func TestPooledIsolatesFailures(t *testing.T) {
	h := newHarness(t, "AAPL")
	h.c.Trades.SetSink(&flakySink{panicOn: map[int]bool{1: true}})
	failures := &failureLog{}
	p := service.NewPooled(h.c, h.pool, failures.report)
	t.Cleanup(p.Stop)

	require.NoError(t, p.InsertOrder(h.order(t, orderbook.Sell, 10, 2)))
	h.book.Flush()
	require.NoError(t, p.InsertOrder(h.order(t, orderbook.Buy, 10, 1)))
	h.book.Flush()
	require.NoError(t, p.InsertOrder(h.order(t, orderbook.Buy, 10, 1)))
	h.book.Flush()

	errs := failures.all()
	require.Len(t, errs, 1)
	assert.Equal(t, service.TierPooled, errs[0].Tier)
	assert.Zero(t, h.c.Sells.Len())
	assert.Equal(t, uint64(1), h.c.Trades.Quantity())
}

func TestPooledSubmitAfterRelease(t *testing.T) {
	h := newHarness(t, "AAPL")
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	pool.Release()

	failures := &failureLog{}
	p := service.NewPooled(h.c, pool, failures.report)
	o := h.order(t, orderbook.Buy, 1, 1)
	require.NoError(t, p.InsertOrder(o))
	p.Stop()
	h.book.Flush()

	errs := failures.all()
	require.Len(t, errs, 1)
	assert.Equal(t, o.ID, errs[0].OrderID)
	assert.ErrorIs(t, errs[0], ants.ErrPoolClosed)
	assert.Zero(t, h.book.Pending())
	assert.Zero(t, h.c.Buys.Len())
}

func TestPooledInsertDoesNotWaitForBusyWorkers(t *testing.T) {
	h := newHarness(t, "AAPL")
	pool, err := service.NewWorkerPool(1, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	gate := make(chan struct{})
	require.NoError(t, pool.Submit(func() { <-gate }))

	p := service.NewPooled(h.c, pool, (&failureLog{}).report)
	t.Cleanup(p.Stop)

	inserted := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i < 5 && err == nil; i++ {
			err = p.InsertOrder(h.order(t, orderbook.Buy, int64(1+i), 1))
		}
		inserted <- err
	}()

	select {
	case err := <-inserted:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(gate)
		t.Fatal("InsertOrder blocked on a busy pool")
	}
	assert.Zero(t, h.c.Buys.Len())

	close(gate)
	h.book.Flush()
	assert.Equal(t, 5, h.c.Buys.Len())
	assert.Zero(t, h.book.Pending())
}

func TestPooledRefusesAfterStop(t *testing.T) {
	h := newHarness(t, "AAPL")
	p := service.NewPooled(h.c, h.pool, (&failureLog{}).report)
	require.NoError(t, p.InsertOrder(h.order(t, orderbook.Sell, 10, 1)))
	p.Stop()
	p.Stop()

	assert.ErrorIs(t, p.InsertOrder(h.order(t, orderbook.Sell, 10, 1)), service.ErrProcessorStopped)
	h.book.Flush()
	assert.Equal(t, 1, h.c.Sells.Len())
}
