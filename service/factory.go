package service

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"tierbook/infra/logging"
	"tierbook/infra/metrics"
)

// NewWorkerPool builds the pool shared by every Pooled processor.
func NewWorkerPool(size int, log *zap.Logger) (*ants.Pool, error) {
	log = logging.OrNop(log)
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p any) {
		log.Error("worker panic escaped order isolation", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("service: worker pool: %w", err)
	}
	return pool, nil
}

// ProcessorFactory builds processors of any tier for a book's collections.
type ProcessorFactory struct {
	pool    *ants.Pool
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewProcessorFactory(pool *ants.Pool, log *zap.Logger, m *metrics.Metrics) *ProcessorFactory {
	return &ProcessorFactory{pool: pool, log: logging.OrNop(log), metrics: m}
}

// New returns a fresh processor of tier sharing c.
func (f *ProcessorFactory) New(tier Tier, c *Collections) Processor {
	switch tier {
	case TierPooled:
		return NewPooled(c, f.pool, f.Report)
	case TierDedicated:
		return NewDedicated(c, f.Report, f.metrics)
	default:
		return NewSynchronous(c)
	}
}

// Report logs and counts an isolated failure.
func (f *ProcessorFactory) Report(err *ProcessingError) {
	f.log.Warn("order processing failed",
		zap.String("instrument", err.Instrument.Symbol),
		zap.Uint64("order_id", err.OrderID),
		zap.Stringer("tier", err.Tier),
		zap.Error(err.Err),
	)
	f.metrics.ProcessingFailed(err.Instrument.Symbol, err.Tier.String())
}
