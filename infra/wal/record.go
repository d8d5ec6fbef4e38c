package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// RecordType tags what a record's payload holds.
type RecordType uint8

const (
	RecordTrade RecordType = iota + 1
)

// Record is one journal entry.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

// Frame:
// [type:1][seq:8][time:8][len:4][payload][crc:4]
// The crc covers header and payload.
const headerSize = 1 + 8 + 8 + 4

var (
	// ErrCorrupt is returned when a record fails its checksum.
	ErrCorrupt = errors.New("wal: crc mismatch")
	// ErrTorn is returned when a segment ends in the middle of a record
	// anywhere but the tail of the newest segment.
	ErrTorn = errors.New("wal: torn record")
)

func (r *Record) encode() []byte {
	n := uint32(len(r.Data))
	buf := make([]byte, headerSize+n+4)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], n)
	copy(buf[headerSize:], r.Data)

	binary.BigEndian.PutUint32(buf[headerSize+n:], checksum(buf[:headerSize+n]))
	return buf
}

// readRecord returns io.EOF at a clean end and io.ErrUnexpectedEOF when
// the stream stops inside a record.
func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[17:21])

	body := make([]byte, n+4)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	payload := body[:n]
	sum := binary.BigEndian.Uint32(body[n:])
	if !checksumValid(append(header, payload...), sum) {
		return nil, fmt.Errorf("%w at seq %d", ErrCorrupt, binary.BigEndian.Uint64(header[1:9]))
	}

	return &Record{
		Type: RecordType(header[0]),
		Seq:  binary.BigEndian.Uint64(header[1:9]),
		Time: int64(binary.BigEndian.Uint64(header[9:17])),
		Data: payload,
	}, nil
}
