// Package metrics exposes the engine's prometheus collectors. A nil
// *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tierbook/domain/orderbook"
)

const namespace = "tierbook"

type Metrics struct {
	ordersReceived *prometheus.CounterVec
	trades         *prometheus.CounterVec
	tradedQty      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	swaps          *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ordersReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_received_total",
			Help:      "Orders accepted by a book.",
		}, []string{"instrument"}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades recorded by a ledger.",
		}, []string{"instrument"}),
		tradedQty: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Summed quantity of recorded trades.",
		}, []string{"instrument"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_failures_total",
			Help:      "Orders whose asynchronous match-then-rest failed.",
		}, []string{"instrument", "tier"}),
		swaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processor_swaps_total",
			Help:      "Processor installations per target tier.",
		}, []string{"instrument", "tier"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedicated_queue_depth",
			Help:      "Orders waiting in a dedicated processor queue.",
		}, []string{"instrument"}),
	}
}

func (m *Metrics) OrderReceived(instrument string) {
	if m == nil {
		return
	}
	m.ordersReceived.WithLabelValues(instrument).Inc()
}

func (m *Metrics) ProcessingFailed(instrument, tier string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(instrument, tier).Inc()
}

func (m *Metrics) ProcessorSwapped(instrument, tier string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(instrument, tier).Inc()
}

func (m *Metrics) QueueDepth(instrument string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(instrument).Set(float64(depth))
}

// Add counts t. Metrics is a TradeSink so it can sit in a ledger's
// MultiSink next to the durable sinks.
func (m *Metrics) Add(t *orderbook.Trade) error {
	if m == nil {
		return nil
	}
	m.trades.WithLabelValues(t.Instrument.Symbol).Inc()
	m.tradedQty.WithLabelValues(t.Instrument.Symbol).Add(float64(t.Quantity))
	return nil
}
