package service

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tierbook/domain/orderbook"
	"tierbook/infra/logging"
	"tierbook/infra/metrics"
)

/*
Book is the order book for one instrument.

Locking, outermost first:
  - swap: guards the active processor. Submitters share it for the length
    of an InsertOrder call; SetProcessor takes it exclusively, so no
    submitter can reach a processor that is being retired.
  - Collections match guard: held for every match-then-rest, whichever
    processor runs it.
  - list and ledger locks: held only inside single list/ledger calls.

Nothing ever waits on swap while holding the match guard, so draining a
Dedicated processor under swap cannot deadlock.
*/
type Book struct {
	c *Collections

	swap sync.RWMutex
	proc Processor

	received Statistic
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewBook wraps c with processor p. A nil p starts the book Synchronous.
func NewBook(c *Collections, p Processor, log *zap.Logger, m *metrics.Metrics) (*Book, error) {
	if c == nil {
		return nil, errors.New("service: nil collections")
	}
	if p == nil {
		p = NewSynchronous(c)
	}
	return &Book{
		c:       c,
		proc:    p,
		log:     logging.OrNop(log).With(zap.String("instrument", c.Instrument.Symbol)),
		metrics: m,
	}, nil
}

func (b *Book) Instrument() orderbook.Instrument { return b.c.Instrument }
func (b *Book) Collections() *Collections        { return b.c }
func (b *Book) BuyOrders() *orderbook.OrderList  { return b.c.Buys }
func (b *Book) SellOrders() *orderbook.OrderList { return b.c.Sells }
func (b *Book) Trades() *orderbook.TradeLedger   { return b.c.Trades }

// Submit hands o to the active processor. Orders a stopped processor
// refuses are not counted; a synchronous order whose trades failed to
// record was still consumed and is.
func (b *Book) Submit(o *orderbook.Order) error {
	if o == nil {
		return &orderbook.ValidationError{Field: "order", Reason: "nil"}
	}
	if o.Instrument != b.c.Instrument {
		return fmt.Errorf("%w: book %q, order %q", orderbook.ErrInstrumentMismatch, b.c.Instrument.Symbol, o.Instrument.Symbol)
	}

	b.swap.RLock()
	err := b.proc.InsertOrder(o)
	b.swap.RUnlock()
	if errors.Is(err, ErrProcessorStopped) {
		return err
	}

	b.received.Inc()
	b.metrics.OrderReceived(b.c.Instrument.Symbol)
	return err
}

// SetProcessor retires the active processor, draining it if it owns a
// queue, and installs p.
func (b *Book) SetProcessor(p Processor) {
	if p == nil {
		return
	}
	b.swap.Lock()
	defer b.swap.Unlock()

	old := b.proc
	if old == p {
		return
	}
	old.Stop()
	b.proc = p

	b.metrics.ProcessorSwapped(b.c.Instrument.Symbol, p.Tier().String())
	b.log.Info("processor swapped", zap.Stringer("from", old.Tier()), zap.Stringer("to", p.Tier()))
}

// Processor returns the active processor.
func (b *Book) Processor() Processor {
	b.swap.RLock()
	defer b.swap.RUnlock()
	return b.proc
}

// Tier returns the active processor's tier.
func (b *Book) Tier() Tier {
	return b.Processor().Tier()
}

// Received is the number of orders accepted since the last reset.
func (b *Book) Received() int64 { return b.received.Value() }

// ResetReceived zeroes the received counter and returns its old value.
func (b *Book) ResetReceived() int64 { return b.received.Reset() }

// Pending is the number of accepted orders still waiting on a pooled or
// dedicated worker.
func (b *Book) Pending() int { return b.c.inflight.count() }

// Flush blocks until every order accepted so far has been processed.
func (b *Book) Flush() {
	b.c.inflight.wait()
}

// Close drains the active processor and waits for outstanding pooled work.
// Submitting after Close to a book whose processor was Pooled or Dedicated
// fails with ErrProcessorStopped.
func (b *Book) Close() {
	b.swap.Lock()
	b.proc.Stop()
	b.swap.Unlock()
	b.Flush()
}
