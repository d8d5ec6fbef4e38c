package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tierbook/domain/orderbook"
	"tierbook/service"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write captures every book in market and replaces the previous snapshot
// atomically. It returns how many orders were saved.
func (w *Writer) Write(market *service.Market) (int, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return 0, err
	}

	s := Snapshot{Version: version, Created: time.Now()}
	n := 0
	for _, b := range market.Books() {
		buys, sells := b.Collections().Snapshot()
		entry := BookEntry{
			Instrument: b.Instrument().Symbol,
			Orders:     make([]OrderEntry, 0, len(buys)+len(sells)),
		}
		for _, o := range append(buys, sells...) {
			entry.Orders = append(entry.Orders, entryFor(o))
		}
		n += len(entry.Orders)
		s.Books = append(s.Books, entry)
	}

	tmp, err := os.CreateTemp(w.Dir, fileName+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&s); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(w.Dir, fileName)); err != nil {
		return 0, err
	}
	return n, nil
}

func entryFor(o *orderbook.Order) OrderEntry {
	return OrderEntry{
		ID:        o.ID,
		Side:      int(o.Side),
		Type:      int(o.Type),
		Price:     o.Price.String(),
		Qty:       o.Quantity(),
		CreatedAt: o.CreatedAt,
	}
}
