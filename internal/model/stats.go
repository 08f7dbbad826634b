package model

import "optionAMM/internal/amount"

// Stats holds counters that span every pool.
type Stats struct {
	TotalPools  uint64        `json:"total_pools"`
	TotalVolume amount.Amount `json:"total_volume"`
}

// Add applies a delta; counters only grow.
func (s Stats) Add(delta Stats) Stats {
	return Stats{
		TotalPools:  s.TotalPools + delta.TotalPools,
		TotalVolume: s.TotalVolume.SaturatingAdd(delta.TotalVolume),
	}
}
