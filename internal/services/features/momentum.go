package features

// Momentum tracks the discretized trend direction of one instrument: hourly
// last-close resample, exponentially weighted moving average over the hourly
// series, difference versus the value diffLag steps earlier, reduced to sign.
//
// The sign is recomputed only when an hour bucket completes, from completed
// buckets, and held constant across every finer-grained bar in the new hour.
// A flip is therefore observable only on the first bar of an hour; this falls
// out of the carry-forward rather than being special-cased.
type Momentum struct {
	span       int
	diffLag    int
	bucketSecs int64
	maxHours   int

	hourly    []float64 // last close per completed hour bucket, oldest first
	curBucket int64
	curClose  float64
	haveCur   bool
	sign      int
}

// NewMomentum creates a tracker. span is the EMA smoothing span (alpha =
// 2/(span+1)), diffLag the number of hourly steps the difference reaches
// back, maxHours the retained hourly history.
func NewMomentum(span, diffLag int, bucketSecs int64, maxHours int) *Momentum {
	return &Momentum{
		span:       span,
		diffLag:    diffLag,
		bucketSecs: bucketSecs,
		maxHours:   maxHours,
	}
}

// Observe feeds one bar's close and returns the momentum sign in force for
// that bar. Bars must arrive in timestamp order (the window store enforces
// this upstream).
func (m *Momentum) Observe(ts int64, close float64) int {
	bucket := ts - ts%m.bucketSecs

	switch {
	case !m.haveCur:
		m.curBucket = bucket
		m.curClose = close
		m.haveCur = true
	case bucket == m.curBucket:
		// same hour: the bucket's last close moves, the sign does not
		m.curClose = close
	case bucket > m.curBucket:
		m.hourly = append(m.hourly, m.curClose)
		if len(m.hourly) > m.maxHours {
			m.hourly = m.hourly[len(m.hourly)-m.maxHours:]
		}
		m.curBucket = bucket
		m.curClose = close
		m.sign = m.recompute()
	}
	return m.sign
}

// Sign returns the sign currently in force without observing a bar.
func (m *Momentum) Sign() int { return m.sign }

// recompute derives sign(ema[n-1] - ema[n-1-diffLag]) over the completed
// hourly closes. Returns 0 until enough history exists for the difference.
func (m *Momentum) recompute() int {
	n := len(m.hourly)
	if n < m.diffLag+1 {
		return 0
	}
	alpha := 2.0 / float64(m.span+1)
	ema := make([]float64, n)
	ema[0] = m.hourly[0]
	for i := 1; i < n; i++ {
		ema[i] = alpha*m.hourly[i] + (1-alpha)*ema[i-1]
	}
	diff := ema[n-1] - ema[n-1-m.diffLag]
	switch {
	case diff > 0:
		return 1
	case diff < 0:
		return -1
	default:
		return 0
	}
}
