// Package wal is an append-only journal of recorded trades: numbered
// segment files of CRC-framed records, rotated by size and replayed in
// sequence order.
package wal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type Config struct {
	Dir         string
	SegmentSize int64
	// SyncEveryWrite fsyncs after each append.
	SyncEveryWrite bool
}

type WAL struct {
	mu       sync.Mutex
	dir      string
	segSize  int64
	syncEach bool
	current  *segment
	segIndex int
	lastSeq  uint64
}

// Open continues the journal in cfg.Dir, appending to its newest segment
// and numbering records after the highest sequence already on disk.
func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		return nil, fmt.Errorf("wal: segment size must be positive, got %d", cfg.SegmentSize)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	files, err := segments(cfg.Dir)
	if err != nil {
		return nil, err
	}

	w := &WAL{dir: cfg.Dir, segSize: cfg.SegmentSize, syncEach: cfg.SyncEveryWrite}
	for _, path := range files {
		seq, err := maxSeqInSegment(path)
		if err != nil {
			return nil, fmt.Errorf("wal: scan %s: %w", path, err)
		}
		w.lastSeq = max(w.lastSeq, seq)
	}
	if len(files) > 0 {
		if w.segIndex, err = segmentIndex(files[len(files)-1]); err != nil {
			return nil, fmt.Errorf("wal: segment name %s: %w", files[len(files)-1], err)
		}
	}

	if w.current, err = openSegment(cfg.Dir, w.segIndex); err != nil {
		return nil, err
	}
	return w, nil
}

// Append frames data as the next record and returns its sequence.
func (w *WAL) Append(t RecordType, data []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return 0, os.ErrClosed
	}

	rec := &Record{Type: t, Seq: w.lastSeq + 1, Time: time.Now().UnixNano(), Data: data}
	if err := w.current.append(rec.encode()); err != nil {
		return 0, err
	}
	w.lastSeq = rec.Seq

	if w.syncEach {
		if err := w.current.sync(); err != nil {
			return rec.Seq, err
		}
	}
	if w.current.offset >= w.segSize {
		return rec.Seq, w.rotate()
	}
	return rec.Seq, nil
}

// LastSeq is the sequence of the newest record.
func (w *WAL) LastSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeq
}

func (w *WAL) rotate() error {
	if err := w.current.sync(); err != nil {
		return err
	}
	_ = w.current.close()
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		w.current = nil
		return err
	}
	w.current = seg
	return nil
}

// Sync flushes the active segment to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return os.ErrClosed
	}
	return w.current.sync()
}

// TruncateBefore removes every closed segment whose records all have a
// sequence at or below seq. The active segment is never removed.
func (w *WAL) TruncateBefore(seq uint64) error {
	w.mu.Lock()
	active := segmentPath(w.dir, w.segIndex)
	w.mu.Unlock()

	files, err := segments(w.dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if path == active {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	err := w.current.sync()
	if cerr := w.current.close(); err == nil {
		err = cerr
	}
	w.current = nil
	return err
}
