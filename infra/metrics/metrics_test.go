package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierbook/domain/orderbook"
	"tierbook/infra/sequence"
)

func TestMetricsRecords(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OrderReceived("MSFT")
	m.OrderReceived("MSFT")
	m.ProcessingFailed("MSFT", "pooled")
	m.ProcessorSwapped("MSFT", "dedicated")
	m.QueueDepth("MSFT", 7)

	tr, err := orderbook.NewTrade(sequence.New(0), orderbook.MustInstrument("MSFT"), 25, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, m.Add(tr))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersReceived.WithLabelValues("MSFT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("MSFT", "pooled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.swaps.WithLabelValues("MSFT", "dedicated")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("MSFT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trades.WithLabelValues("MSFT")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.tradedQty.WithLabelValues("MSFT")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.OrderReceived("X")
	m.ProcessingFailed("X", "pooled")
	m.ProcessorSwapped("X", "synchronous")
	m.QueueDepth("X", 1)
	assert.NoError(t, m.Add(nil))
}
