package wal

import (
	"errors"
	"fmt"
	"io"
	"os"
)

type ReplayHandler func(*Record) error

// Replay feeds every record in dir to fn, oldest first, and returns the
// last sequence seen. Sequences must strictly increase. A record cut off
// at the end of the newest segment is treated as the end of the journal.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	files, err := segments(dir)
	if err != nil {
		return 0, err
	}

	for i, path := range files {
		newest := i == len(files)-1
		lastSeq, err = replaySegment(path, newest, lastSeq, fn)
		if err != nil {
			return lastSeq, err
		}
	}
	return lastSeq, nil
}

func replaySegment(path string, newest bool, lastSeq uint64, fn ReplayHandler) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return lastSeq, err
	}
	defer f.Close()

	for {
		rec, err := readRecord(f)
		switch {
		case err == io.EOF:
			return lastSeq, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			if newest {
				return lastSeq, nil
			}
			return lastSeq, fmt.Errorf("%w in %s after seq %d", ErrTorn, path, lastSeq)
		case err != nil:
			return lastSeq, err
		}

		if rec.Seq <= lastSeq {
			return lastSeq, fmt.Errorf("wal: non-monotonic seq %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq

		if err := fn(rec); err != nil {
			return lastSeq, err
		}
	}
}
