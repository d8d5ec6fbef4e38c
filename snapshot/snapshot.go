package snapshot

import "time"

const version = 1

type Snapshot struct {
	Version int
	Created time.Time
	Books   []BookEntry
}

type BookEntry struct {
	Instrument string
	Orders     []OrderEntry
}

type OrderEntry struct {
	ID        uint64
	Side      int
	Type      int
	Price     string
	Qty       uint64
	CreatedAt time.Time
}
