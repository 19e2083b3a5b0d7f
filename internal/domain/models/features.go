package models

// FeatureSnapshot is the derived statistical state after one bar. Snapshots
// are recomputed whole, never mutated; the evaluator compares consecutive
// snapshots to detect momentum flips.
type FeatureSnapshot struct {
	Timestamp int64 `json:"ts"`

	// MomentumSign holds the discretized trend direction (-1, 0, +1) per
	// tracked instrument, recomputed at hour boundaries and held constant
	// across the hour's bars.
	MomentumSign map[string]int `json:"momentum_sign"`

	// Percentile ranks against the retained 30-day window, all in [0,1].
	VolumePct   float64 `json:"volume_pct"`
	LongLiqPct  float64 `json:"long_liq_pct"`
	ShortLiqPct float64 `json:"short_liq_pct"`
	TotalLiqPct float64 `json:"total_liq_pct"`
}

// Sign returns the momentum sign for an instrument, 0 when untracked.
func (s FeatureSnapshot) Sign(instrument string) int {
	return s.MomentumSign[instrument]
}

// Clone returns a deep copy so published snapshots stay immutable.
func (s FeatureSnapshot) Clone() FeatureSnapshot {
	out := s
	out.MomentumSign = make(map[string]int, len(s.MomentumSign))
	for k, v := range s.MomentumSign {
		out.MomentumSign[k] = v
	}
	return out
}
