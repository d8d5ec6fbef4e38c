package service

import (
	"errors"
	"fmt"
	"sync"

	"tierbook/domain/orderbook"
)

// ErrInstrumentNotFound is returned when no book trades the instrument.
var ErrInstrumentNotFound = errors.New("service: instrument not found")

// Market is the directory of books, keyed by instrument.
type Market struct {
	mu    sync.RWMutex
	books map[orderbook.Instrument]*Book
	order []*Book
}

func NewMarket(books ...*Book) (*Market, error) {
	m := &Market{books: make(map[orderbook.Instrument]*Book, len(books))}
	for _, b := range books {
		if err := m.Add(b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add registers b. Each instrument may have only one book.
func (m *Market) Add(b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.Instrument()]; ok {
		return fmt.Errorf("service: duplicate book for %q", b.Instrument().Symbol)
	}
	m.books[b.Instrument()] = b
	m.order = append(m.order, b)
	return nil
}

// Lookup resolves instrument to its book.
func (m *Market) Lookup(instrument orderbook.Instrument) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[instrument]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInstrumentNotFound, instrument.Symbol)
	}
	return b, nil
}

// Submit routes o to the book for its instrument.
func (m *Market) Submit(o *orderbook.Order) error {
	if o == nil {
		return &orderbook.ValidationError{Field: "order", Reason: "nil"}
	}
	b, err := m.Lookup(o.Instrument)
	if err != nil {
		return err
	}
	return b.Submit(o)
}

// Books returns every book in registration order.
func (m *Market) Books() []*Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Book, len(m.order))
	copy(out, m.order)
	return out
}

// Close retires every book's processor.
func (m *Market) Close() {
	for _, b := range m.Books() {
		b.Close()
	}
}
