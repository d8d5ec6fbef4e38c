// Package simulator drives random order flow into a market in-process.
// Instruments are picked with a skewed distribution so that the
// prioritizer has uneven load to rank.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tierbook/domain/orderbook"
	"tierbook/infra/logging"
	"tierbook/service"
)

// MaxRate is the highest Rate the ticker can pace; above it the tick
// interval rounds down to zero.
const MaxRate = 1_000_000

// Config shapes the flow. Rate is orders per second across all books;
// prices fall in MidPrice±Spread and quantities in [1, MaxQty].
type Config struct {
	Rate     int
	MidPrice int64
	Spread   int64
	MaxQty   uint64
	Seed     int64
}

type Simulator struct {
	market *service.Market
	ids    orderbook.IDGenerator
	cfg    Config
	rnd    *rand.Rand
	zipf   *rand.Zipf
	log    *zap.Logger
}

func New(market *service.Market, ids orderbook.IDGenerator, cfg Config, log *zap.Logger) (*Simulator, error) {
	if market == nil || ids == nil {
		return nil, errors.New("simulator: nil market or id generator")
	}
	if cfg.Rate <= 0 || cfg.Rate > MaxRate {
		return nil, fmt.Errorf("simulator: rate must be in [1, %d], got %d", MaxRate, cfg.Rate)
	}
	if len(market.Books()) == 0 {
		return nil, errors.New("simulator: market has no books")
	}
	if cfg.MidPrice <= 0 {
		cfg.MidPrice = 100
	}
	if cfg.Spread <= 0 || cfg.Spread >= cfg.MidPrice {
		cfg.Spread = cfg.MidPrice / 10
	}
	if cfg.MaxQty == 0 {
		cfg.MaxQty = 100
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	s := &Simulator{
		market: market,
		ids:    ids,
		cfg:    cfg,
		rnd:    r,
		log:    logging.OrNop(log),
	}
	if n := len(market.Books()); n > 1 {
		s.zipf = rand.NewZipf(r, 1.2, 1, uint64(n-1))
	}
	return s, nil
}

// Next builds one random order. Not safe for concurrent use.
func (s *Simulator) Next() (*orderbook.Order, error) {
	books := s.market.Books()
	b := books[0]
	if s.zipf != nil {
		b = books[int(s.zipf.Uint64())%len(books)]
	}

	side := orderbook.Buy
	if s.rnd.Intn(2) == 0 {
		side = orderbook.Sell
	}
	price := s.cfg.MidPrice - s.cfg.Spread + s.rnd.Int63n(2*s.cfg.Spread+1)
	qty := 1 + uint64(s.rnd.Int63n(int64(s.cfg.MaxQty)))

	return orderbook.NewOrder(s.ids, b.Instrument(), orderbook.LimitPrice, side, decimal.NewFromInt(price), qty)
}

// Run submits orders at the configured rate until ctx is done.
func (s *Simulator) Run(ctx context.Context) {
	s.log.Info("simulator started", zap.Int("rate", s.cfg.Rate), zap.Int64("seed", s.cfg.Seed))
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.Rate))
	defer ticker.Stop()

	var submitted, failed uint64
	for {
		select {
		case <-ctx.Done():
			s.log.Info("simulator stopped", zap.Uint64("submitted", submitted), zap.Uint64("failed", failed))
			return
		case <-ticker.C:
			o, err := s.Next()
			if err == nil {
				err = s.market.Submit(o)
			}
			if err != nil {
				failed++
				s.log.Debug("simulated order rejected", zap.Error(err))
				continue
			}
			submitted++
		}
	}
}
