package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const segmentGlob = "segment-*.wal"

type segment struct {
	file   *os.File
	offset int64
}

func segmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%06d.wal", index))
}

func openSegment(dir string, index int) (*segment, error) {
	f, err := os.OpenFile(segmentPath(dir, index), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{file: f, offset: st.Size()}, nil
}

func (s *segment) append(b []byte) error {
	n, err := s.file.Write(b)
	s.offset += int64(n)
	return err
}

func (s *segment) sync() error  { return s.file.Sync() }
func (s *segment) close() error { return s.file.Close() }

// segments lists the segment files in dir, oldest first.
func segments(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, segmentGlob))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func segmentIndex(path string) (int, error) {
	var idx int
	_, err := fmt.Sscanf(filepath.Base(path), "segment-%06d.wal", &idx)
	return idx, err
}
