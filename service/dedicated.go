package service

import (
	"sync"

	"github.com/eapache/queue"

	"tierbook/domain/orderbook"
	"tierbook/infra/metrics"
)

// State is the lifecycle of a Dedicated processor.
type State int

const (
	Active State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Draining:
		return "draining"
	default:
		return "stopped"
	}
}

// Dedicated feeds a single FIFO queue to one goroutine that owns matching
// for the book, so orders are processed strictly in submission order.
type Dedicated struct {
	c       *Collections
	report  FailureHandler
	metrics *metrics.Metrics

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	state   State
	done    chan struct{}
}

// NewDedicated starts the consumer goroutine. The processor must be
// retired with Stop.
func NewDedicated(c *Collections, report FailureHandler, m *metrics.Metrics) *Dedicated {
	d := &Dedicated{
		c:       c,
		report:  report,
		metrics: m,
		pending: queue.New(),
		done:    make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// InsertOrder enqueues o. It never waits for matching.
func (d *Dedicated) InsertOrder(o *orderbook.Order) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Active {
		return ErrProcessorStopped
	}
	d.c.inflight.add()
	d.pending.Add(o)
	d.metrics.QueueDepth(d.c.Instrument.Symbol, d.pending.Length())
	d.cond.Signal()
	return nil
}

func (d *Dedicated) Tier() Tier { return TierDedicated }

// State reports where the processor is in its lifecycle.
func (d *Dedicated) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stop refuses new orders, processes everything already queued and waits
// for the consumer to exit. There is no timeout. Calling Stop again
// just waits.
func (d *Dedicated) Stop() {
	d.mu.Lock()
	if d.state == Active {
		d.state = Draining
		d.cond.Broadcast()
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dedicated) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for d.pending.Length() == 0 && d.state == Active {
			d.cond.Wait()
		}
		if d.pending.Length() == 0 {
			d.state = Stopped
			d.mu.Unlock()
			return
		}
		o := d.pending.Remove().(*orderbook.Order)
		d.metrics.QueueDepth(d.c.Instrument.Symbol, d.pending.Length())
		d.mu.Unlock()

		runIsolated(d.c, o, TierDedicated, d.report)
		d.c.inflight.done()
	}
}
