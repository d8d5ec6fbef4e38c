package wal

import (
	"fmt"

	"tierbook/domain/orderbook"
	"tierbook/infra/codec"
)

var _ orderbook.TradeSink = (*Sink)(nil)

// Sink journals every trade it is given.
type Sink struct {
	w *WAL
}

func NewSink(w *WAL) *Sink { return &Sink{w: w} }

func (s *Sink) Add(t *orderbook.Trade) error {
	if _, err := s.w.Append(RecordTrade, codec.EncodeTrade(nil, t)); err != nil {
		return fmt.Errorf("wal: journal trade %d: %w", t.ID, err)
	}
	return nil
}

// ReplayTrades decodes every journaled trade in dir, oldest first.
func ReplayTrades(dir string, fn func(seq uint64, t *orderbook.Trade) error) (uint64, error) {
	return Replay(dir, func(r *Record) error {
		if r.Type != RecordTrade {
			return nil
		}
		t, err := codec.DecodeTrade(r.Data)
		if err != nil {
			return fmt.Errorf("wal: seq %d: %w", r.Seq, err)
		}
		return fn(r.Seq, t)
	})
}
