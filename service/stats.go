package service

import "sync/atomic"

// Statistic is a resettable counter.
type Statistic struct {
	v atomic.Int64
}

func (s *Statistic) Inc()         { s.v.Add(1) }
func (s *Statistic) Value() int64 { return s.v.Load() }

// Reset zeroes the counter and returns what it held.
func (s *Statistic) Reset() int64 { return s.v.Swap(0) }
