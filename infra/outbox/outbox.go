// Package outbox is the durable hand-off between the matching core and
// the Kafka relay: every recorded trade is stored in pebble under its own
// sequence and walks New -> Sent -> Acked (or Failed) as the broadcaster
// delivers it.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"tierbook/domain/orderbook"
	"tierbook/infra/codec"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// Trade decodes the record's payload.
func (r *Record) Trade() (*orderbook.Trade, error) {
	return codec.DecodeTrade(r.Payload)
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
const metaSize = 1 + 4 + 8

func encodeRecord(r *Record) []byte {
	buf := make([]byte, metaSize+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[metaSize:], r.Payload)
	return buf
}

// decodeRecord copies b, which pebble may reuse.
func decodeRecord(seq uint64, b []byte) (*Record, error) {
	if len(b) < metaSize {
		return nil, errors.New("outbox: invalid record length")
	}
	return &Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     bytes.Clone(b[metaSize:]),
	}, nil
}

// -------------------- Outbox --------------------

var ErrNotFound = errors.New("outbox: record not found")

type Outbox struct {
	db *pebble.DB

	mu      sync.Mutex
	lastSeq uint64
}

// Open opens or creates the outbox in dir and resumes numbering after the
// newest stored record.
func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}
	o := &Outbox{db: db}
	if o.lastSeq, err = o.newestSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

func (o *Outbox) newestSeq() (uint64, error) {
	iter, err := o.db.NewIter(bounds())
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// -------------------- API --------------------

var _ orderbook.TradeSink = (*Outbox)(nil)

// Add stores t as a New record.
func (o *Outbox) Add(t *orderbook.Trade) error {
	_, err := o.Put(codec.EncodeTrade(nil, t))
	return err
}

// Put stores payload as a New record and returns its sequence.
func (o *Outbox) Put(payload []byte) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	seq := o.lastSeq + 1
	rec := &Record{Seq: seq, State: StateNew, Payload: payload}
	if err := o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync); err != nil {
		return 0, fmt.Errorf("outbox: put %d: %w", seq, err)
	}
	o.lastSeq = seq
	return seq, nil
}

// UpdateState records a delivery attempt outcome, keeping the payload.
func (o *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

func (o *Outbox) MarkSent(seq uint64, retries uint32) error {
	return o.UpdateState(seq, StateSent, retries)
}

func (o *Outbox) MarkAcked(seq uint64, retries uint32) error {
	return o.UpdateState(seq, StateAcked, retries)
}

func (o *Outbox) MarkFailed(seq uint64, retries uint32) error {
	return o.UpdateState(seq, StateFailed, retries)
}

// Get returns the record stored under seq.
func (o *Outbox) Get(seq uint64) (*Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, seq)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// Delete removes the record under seq.
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// -------------------- Scan --------------------

// ScanByState iterates, oldest first, every record in one of states.
// fn may update the record it is given.
func (o *Outbox) ScanByState(fn func(*Record) error, states ...State) error {
	iter, err := o.db.NewIter(bounds())
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || !slices.Contains(states, State(val[0])) {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, val)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// TruncateAcked deletes every Acked record and reports how many went.
func (o *Outbox) TruncateAcked() (int, error) {
	batch := o.db.NewBatch()
	defer batch.Close()

	n := 0
	err := o.ScanByState(func(r *Record) error {
		n++
		return batch.Delete(keyFor(r.Seq), nil)
	}, StateAcked)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, batch.Commit(pebble.Sync)
}

// Count reports how many records are in each state.
func (o *Outbox) Count() (map[State]int, error) {
	out := make(map[State]int)
	err := o.ScanByState(func(r *Record) error {
		out[r.State]++
		return nil
	}, StateNew, StateSent, StateAcked, StateFailed)
	return out, err
}

// -------------------- Helpers --------------------

const keyPrefix = "trade/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf(keyPrefix+"%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}

func bounds() *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	}
}
