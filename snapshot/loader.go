package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"tierbook/domain/orderbook"
	"tierbook/service"
)

// Result summarises a load.
type Result struct {
	Orders int
	// MaxOrderID is the highest restored order id; new ids must start
	// above it.
	MaxOrderID uint64
	// Skipped lists instruments in the snapshot that have no book.
	Skipped []string
}

// Load restores the snapshot in dir into market's books without
// matching. A missing snapshot is not an error.
func Load(dir string, market *service.Market) (Result, error) {
	var res Result

	f, err := os.Open(filepath.Join(dir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return res, nil // snapshot optional
	}
	if err != nil {
		return res, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return res, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.Version != version {
		return res, fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}

	for _, be := range s.Books {
		inst, err := orderbook.NewInstrument(be.Instrument)
		if err != nil {
			return res, err
		}
		book, err := market.Lookup(inst)
		if errors.Is(err, service.ErrInstrumentNotFound) {
			res.Skipped = append(res.Skipped, be.Instrument)
			continue
		}
		if err != nil {
			return res, err
		}

		for _, e := range be.Orders {
			price, err := decimal.NewFromString(e.Price)
			if err != nil {
				return res, fmt.Errorf("snapshot: order %d price: %w", e.ID, err)
			}
			o, err := orderbook.RestoreOrder(e.ID, inst, orderbook.OrderType(e.Type), orderbook.Side(e.Side), price, e.Qty, e.CreatedAt)
			if err != nil {
				return res, fmt.Errorf("snapshot: order %d: %w", e.ID, err)
			}
			if err := book.Collections().Rest(o); err != nil {
				return res, fmt.Errorf("snapshot: order %d: %w", e.ID, err)
			}
			res.Orders++
			res.MaxOrderID = max(res.MaxOrderID, e.ID)
		}
	}
	return res, nil
}
