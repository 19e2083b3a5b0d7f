package models

import "math"

// Bar is a single 5-minute OHLCV candle. Immutable once accepted; bars are
// ordered by timestamp per instrument.
type Bar struct {
	Timestamp  int64   `json:"ts"`
	Instrument string  `json:"instrument"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
}

// Valid reports whether the bar is well-formed: positive timestamp, named
// instrument, finite positive prices and a finite non-negative volume.
func (b Bar) Valid() bool {
	if b.Timestamp <= 0 || b.Instrument == "" {
		return false
	}
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return b.Volume >= 0 && !math.IsNaN(b.Volume) && !math.IsInf(b.Volume, 0)
}

// LiquidationReading is one hourly long/short liquidation notional record.
// Immutable once recorded; carried forward onto each 5m bar until superseded.
type LiquidationReading struct {
	Timestamp  int64   `json:"ts"`
	Instrument string  `json:"instrument"`
	LongValue  float64 `json:"long_liq_usd"`
	ShortValue float64 `json:"short_liq_usd"`
}

// Valid reports whether the reading is well-formed.
func (r LiquidationReading) Valid() bool {
	if r.Timestamp <= 0 || r.Instrument == "" {
		return false
	}
	for _, v := range []float64{r.LongValue, r.ShortValue} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Total returns long + short liquidation notional.
func (r LiquidationReading) Total() float64 { return r.LongValue + r.ShortValue }

// Inbound is the sum type of events the core engine consumes. Ingestion
// collaborators produce these; the engine processes them one at a time.
type Inbound interface{ inbound() }

// NewBar carries a live or backfilled candle into the engine.
type NewBar struct {
	Bar Bar
}

// NewLiquidationReading carries an hourly liquidation record into the engine.
// IsOnset is set by the poller on the first delivery of a fresh reading and
// trusted as-is by the core.
type NewLiquidationReading struct {
	Reading LiquidationReading
	IsOnset bool
}

func (NewBar) inbound()                {}
func (NewLiquidationReading) inbound() {}
