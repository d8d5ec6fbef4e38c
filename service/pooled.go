package service

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/panjf2000/ants/v2"

	"tierbook/domain/orderbook"
)

// Pooled hands each order to a worker pool shared across books and
// returns at once. Orders wait in a per-book queue while every worker is
// busy; a feeder goroutine moves them into the pool. Tasks for the same
// book still serialize on the match guard, but they may complete in any
// order.
type Pooled struct {
	c      *Collections
	pool   *ants.Pool
	report FailureHandler

	mu       sync.Mutex
	cond     *sync.Cond
	pending  *queue.Queue
	stopping bool
	done     chan struct{}
}

// NewPooled starts the feeder goroutine. The processor must be retired
// with Stop.
func NewPooled(c *Collections, pool *ants.Pool, report FailureHandler) *Pooled {
	p := &Pooled{
		c:       c,
		pool:    pool,
		report:  report,
		pending: queue.New(),
		done:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.feed()
	return p
}

// InsertOrder enqueues o. It never waits for a free worker.
func (p *Pooled) InsertOrder(o *orderbook.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopping {
		return ErrProcessorStopped
	}
	p.c.inflight.add()
	p.pending.Add(o)
	p.cond.Signal()
	return nil
}

func (p *Pooled) Tier() Tier { return TierPooled }

// Stop refuses new orders and waits until everything queued has been
// handed to the pool. Tasks already in the pool belong to it; the book
// waits for them with Flush.
func (p *Pooled) Stop() {
	p.mu.Lock()
	if !p.stopping {
		p.stopping = true
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	<-p.done
}

func (p *Pooled) feed() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for p.pending.Length() == 0 && !p.stopping {
			p.cond.Wait()
		}
		if p.pending.Length() == 0 {
			p.mu.Unlock()
			return
		}
		o := p.pending.Remove().(*orderbook.Order)
		p.mu.Unlock()

		err := p.pool.Submit(func() {
			defer p.c.inflight.done()
			runIsolated(p.c, o, TierPooled, p.report)
		})
		if err != nil {
			p.c.inflight.done()
			p.report(&ProcessingError{
				OrderID:    o.ID,
				Instrument: p.c.Instrument,
				Tier:       TierPooled,
				Err:        fmt.Errorf("submit: %w", err),
			})
		}
	}
}
