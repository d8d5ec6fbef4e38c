package orderbook

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/eapache/queue"
)

// InMemorySink accumulates trades in a slice.
type InMemorySink struct {
	mu     sync.Mutex
	trades []*Trade
}

func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

func (s *InMemorySink) Add(t *Trade) error {
	s.mu.Lock()
	s.trades = append(s.trades, t)
	s.mu.Unlock()
	return nil
}

// Trades returns a copy of everything added so far.
func (s *InMemorySink) Trades() []*Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

func (s *InMemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

// RecentSink keeps the last n trades and drops older ones, so a
// long-running book holds bounded memory.
type RecentSink struct {
	mu     sync.Mutex
	limit  int
	trades *queue.Queue
}

// NewRecentSink keeps at most n trades; n below 1 keeps one.
func NewRecentSink(n int) *RecentSink {
	return &RecentSink{limit: max(n, 1), trades: queue.New()}
}

func (s *RecentSink) Add(t *Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trades.Length() == s.limit {
		s.trades.Remove()
	}
	s.trades.Add(t)
	return nil
}

// Trades returns the retained trades, oldest first.
func (s *RecentSink) Trades() []*Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Trade, s.trades.Length())
	for i := range out {
		out[i] = s.trades.Get(i).(*Trade)
	}
	return out
}

// Last returns the newest trade, or nil when none was added.
func (s *RecentSink) Last() *Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trades.Length() == 0 {
		return nil
	}
	return s.trades.Get(-1).(*Trade)
}

// WriterSink writes one line per trade to an external writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Add(t *Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, t.String())
	return err
}

// MultiSink forwards every trade to each sink in order. All sinks see the
// trade even when an earlier one fails; the failures are joined.
type MultiSink []TradeSink

func (m MultiSink) Add(t *Trade) error {
	var errs []error
	for _, s := range m {
		if err := s.Add(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
