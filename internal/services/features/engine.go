package features

import (
	"time"

	"LiqPulse/internal/domain/models"
)

// Defaults matching the calibrated backtest: 30 days of 5m bars, hourly
// liquidation readings, EMA span 20 with a 3-hour difference.
const (
	DefaultWindowBars  = 8640
	DefaultWindowHours = 720
	DefaultEMASpan     = 20
	DefaultDiffLag     = 3
	HourSeconds        = 3600
)

// Engine derives a FeatureSnapshot per bar: momentum sign with flip
// detection via consecutive snapshots, and percentile ranks of volume and
// liquidation magnitudes against the rolling window.
type Engine struct {
	window   *Window
	momentum map[string]*Momentum

	emaSpan int
	diffLag int
}

// Option configures the feature engine.
type Option func(*Engine)

// WithEMASpan overrides the momentum EMA span.
func WithEMASpan(span int) Option {
	return func(e *Engine) {
		if span > 0 {
			e.emaSpan = span
		}
	}
}

// WithDiffLag overrides the hourly difference lag.
func WithDiffLag(lag int) Option {
	return func(e *Engine) {
		if lag > 0 {
			e.diffLag = lag
		}
	}
}

// NewEngine creates a feature engine over a window with the given caps.
func NewEngine(maxBars, maxReadings int, retention time.Duration, opts ...Option) *Engine {
	e := &Engine{
		window:   NewWindow(maxBars, maxReadings, retention),
		momentum: make(map[string]*Momentum),
		emaSpan:  DefaultEMASpan,
		diffLag:  DefaultDiffLag,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window exposes the underlying rolling window store.
func (e *Engine) Window() *Window { return e.window }

// ObserveBar appends a bar and advances that instrument's momentum tracker.
// Returns whether the bar opened a new window slot, or ErrOutOfOrderEvent.
func (e *Engine) ObserveBar(b models.Bar) (isNew bool, err error) {
	isNew, err = e.window.AppendBar(b)
	if err != nil {
		return false, err
	}
	m, ok := e.momentum[b.Instrument]
	if !ok {
		m = NewMomentum(e.emaSpan, e.diffLag, HourSeconds, DefaultWindowHours)
		e.momentum[b.Instrument] = m
	}
	m.Observe(b.Timestamp, b.Close)
	return isNew, nil
}

// ObserveReading appends a liquidation reading, making it the carry-forward
// source for subsequent bars.
func (e *Engine) ObserveReading(r models.LiquidationReading) error {
	return e.window.AppendReading(r)
}

// Snapshot computes the feature state after the newest bar of the primary
// instrument. Momentum signs cover every instrument observed so far.
func (e *Engine) Snapshot(primary string, ts int64) models.FeatureSnapshot {
	snap := models.FeatureSnapshot{
		Timestamp:    ts,
		MomentumSign: make(map[string]int, len(e.momentum)),
	}
	for instrument, m := range e.momentum {
		snap.MomentumSign[instrument] = m.Sign()
	}
	snap.VolumePct = e.window.volumePct(primary)
	snap.LongLiqPct = e.window.liqPct(primary, func(be BarEntry) float64 { return be.LongLiq })
	snap.ShortLiqPct = e.window.liqPct(primary, func(be BarEntry) float64 { return be.ShortLiq })
	snap.TotalLiqPct = e.window.liqPct(primary, func(be BarEntry) float64 { return be.TotalLiq })
	return snap
}
