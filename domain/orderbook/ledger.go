package orderbook

import (
	"sync"
	"sync/atomic"
)

// TradeSink receives every trade a ledger accepts.
type TradeSink interface {
	Add(t *Trade) error
}

// TradeLedger is the append-only record of trades for one instrument.
// Trades are forwarded to a replaceable sink under the ledger's lock, so a
// sink never sees two concurrent Add calls from the same ledger.
type TradeLedger struct {
	instrument Instrument

	mu   sync.Mutex
	sink TradeSink

	count    atomic.Uint64
	quantity atomic.Uint64
}

// NewTradeLedger binds a ledger to instrument. A nil sink keeps trades in
// memory.
func NewTradeLedger(instrument Instrument, sink TradeSink) *TradeLedger {
	if sink == nil {
		sink = NewInMemorySink()
	}
	return &TradeLedger{instrument: instrument, sink: sink}
}

func (l *TradeLedger) Instrument() Instrument { return l.instrument }

// AddTrade appends t and forwards it to the sink.
func (l *TradeLedger) AddTrade(t *Trade) error {
	if t == nil {
		return &ValidationError{Field: "trade", Reason: "nil"}
	}
	if t.Instrument != l.instrument {
		return mismatch(l.instrument, t.Instrument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.sink.Add(t); err != nil {
		return err
	}
	l.count.Add(1)
	l.quantity.Add(t.Quantity)
	return nil
}

// Sink returns the current sink.
func (l *TradeLedger) Sink() TradeSink {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink
}

// SetSink swaps the sink. Trades already forwarded stay where they went.
func (l *TradeLedger) SetSink(sink TradeSink) {
	if sink == nil {
		sink = NewInMemorySink()
	}
	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
}

// Count is the number of trades accepted by the sink so far.
func (l *TradeLedger) Count() uint64 { return l.count.Load() }

// Quantity is the summed quantity of accepted trades.
func (l *TradeLedger) Quantity() uint64 { return l.quantity.Load() }
