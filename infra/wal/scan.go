package wal

import (
	"encoding/binary"
	"io"
	"os"
)

// maxSeqInSegment returns the highest sequence framed in the segment at
// path. A torn tail is ignored.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	header := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return max, nil
			}
			return max, err
		}

		if seq := binary.BigEndian.Uint64(header[1:9]); seq > max {
			max = seq
		}

		// Skip payload + CRC
		n := binary.BigEndian.Uint32(header[17:21])
		if _, err := f.Seek(int64(n)+4, io.SeekCurrent); err != nil {
			return max, err
		}
	}
}
