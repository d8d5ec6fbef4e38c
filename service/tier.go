package service

// Thresholds split ranked books into tiers by cumulative percentage.
type Thresholds struct {
	DedicatedPercentage float64
	PooledPercentage    float64
}

// TierFor classifies the book at 0-based rank among total books ranked
// busiest first. The book's cumulative percentile is (rank+1)/total; the
// first band it falls into, upper bound inclusive, wins.
func TierFor(rank, total int, th Thresholds) Tier {
	if total <= 0 || rank < 0 || rank >= total {
		return TierSynchronous
	}
	pct := float64(rank+1) * 100 / float64(total)
	switch {
	case pct <= th.DedicatedPercentage:
		return TierDedicated
	case pct <= th.DedicatedPercentage+th.PooledPercentage:
		return TierPooled
	default:
		return TierSynchronous
	}
}
