// Package prioritizer periodically ranks books by how many orders they
// received and moves the busiest onto heavier execution tiers.
package prioritizer

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"tierbook/domain/orderbook"
	"tierbook/infra/logging"
	"tierbook/service"
)

// BookSource lists the books to rank. *service.Market satisfies it.
type BookSource interface {
	Books() []*service.Book
}

// Builder makes a processor of a tier for a book's collections.
// *service.ProcessorFactory satisfies it.
type Builder interface {
	New(tier service.Tier, c *service.Collections) service.Processor
}

// Assignment is the outcome of ranking one book.
type Assignment struct {
	Instrument orderbook.Instrument
	Load       int64
	From       service.Tier
	To         service.Tier
}

// Changed reports whether the book was moved to a different tier.
func (a Assignment) Changed() bool { return a.From != a.To }

type Prioritizer struct {
	books      BookSource
	build      Builder
	thresholds service.Thresholds
	interval   time.Duration
	log        *zap.Logger
}

func New(books BookSource, build Builder, th service.Thresholds, interval time.Duration, log *zap.Logger) (*Prioritizer, error) {
	if books == nil || build == nil {
		return nil, errors.New("prioritizer: nil book source or builder")
	}
	if interval <= 0 {
		return nil, errors.New("prioritizer: interval must be positive")
	}
	return &Prioritizer{
		books:      books,
		build:      build,
		thresholds: th,
		interval:   interval,
		log:        logging.OrNop(log),
	}, nil
}

type ranked struct {
	book *service.Book
	load int64
}

// Rebalance takes one interval's worth of load from every book, ranks the
// books busiest first and swaps the processor of each book whose tier
// changed. Books with equal load keep their registration order.
func (p *Prioritizer) Rebalance() []Assignment {
	books := p.books.Books()

	// Orders landing mid-ranking count toward the next interval.
	rs := make([]ranked, len(books))
	for i, b := range books {
		rs[i] = ranked{book: b, load: b.ResetReceived()}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].load > rs[j].load })

	out := make([]Assignment, len(rs))
	for rank, r := range rs {
		a := Assignment{
			Instrument: r.book.Instrument(),
			Load:       r.load,
			From:       r.book.Tier(),
			To:         service.TierFor(rank, len(rs), p.thresholds),
		}
		if a.Changed() {
			r.book.SetProcessor(p.build.New(a.To, r.book.Collections()))
			p.log.Info("tier reassigned",
				zap.String("instrument", a.Instrument.Symbol),
				zap.Int64("load", a.Load),
				zap.Stringer("from", a.From),
				zap.Stringer("to", a.To),
			)
		}
		out[rank] = a
	}
	return out
}

// Run rebalances every interval until ctx is done.
func (p *Prioritizer) Run(ctx context.Context) {
	p.log.Info("prioritizer started", zap.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("prioritizer stopped")
			return
		case <-ticker.C:
			p.Rebalance()
		}
	}
}
