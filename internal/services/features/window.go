package features

import (
	"time"

	"LiqPulse/internal/domain/models"
)

// BarEntry is one retained bar together with the liquidation values carried
// forward onto it at append time. LiqTS records the source reading's
// timestamp; there is no interpolation.
type BarEntry struct {
	Bar      models.Bar
	LongLiq  float64
	ShortLiq float64
	TotalLiq float64
	LiqTS    int64
}

// Window is the bounded, time-ordered history of bars and liquidation
// readings per instrument. Population never exceeds the fixed caps and never
// retains entries past the retention horizon.
type Window struct {
	maxBars     int
	maxReadings int
	retention   time.Duration

	bars     map[string][]BarEntry
	readings map[string][]models.LiquidationReading

	// most recent reading per instrument, the carry-forward source
	lastReading map[string]models.LiquidationReading
	hasReading  map[string]bool
}

// NewWindow creates a rolling window store. maxBars and maxReadings bound the
// per-instrument populations; retention is the absolute age horizon.
func NewWindow(maxBars, maxReadings int, retention time.Duration) *Window {
	return &Window{
		maxBars:     maxBars,
		maxReadings: maxReadings,
		retention:   retention,
		bars:        make(map[string][]BarEntry),
		readings:    make(map[string][]models.LiquidationReading),
		lastReading: make(map[string]models.LiquidationReading),
		hasReading:  make(map[string]bool),
	}
}

// AppendBar inserts a bar in timestamp order. A bar equal in timestamp to the
// newest entry replaces it (live candle update); an older timestamp fails
// with ErrOutOfOrderEvent and leaves the window unchanged. Returns whether
// the bar opened a new slot rather than updating the newest one.
func (w *Window) AppendBar(b models.Bar) (isNew bool, err error) {
	series := w.bars[b.Instrument]
	if n := len(series); n > 0 {
		last := series[n-1].Bar.Timestamp
		if b.Timestamp < last {
			return false, models.ErrOutOfOrderEvent
		}
		if b.Timestamp == last {
			series[n-1].Bar = b
			return false, nil
		}
	}

	entry := BarEntry{Bar: b}
	if r, ok := w.lastReading[b.Instrument]; ok && w.hasReading[b.Instrument] {
		entry.LongLiq = r.LongValue
		entry.ShortLiq = r.ShortValue
		entry.TotalLiq = r.Total()
		entry.LiqTS = r.Timestamp
	}
	series = append(series, entry)
	w.bars[b.Instrument] = w.evictBars(series)
	return true, nil
}

// AppendReading records an hourly liquidation reading and makes it the
// carry-forward source for subsequent bars of that instrument.
func (w *Window) AppendReading(r models.LiquidationReading) error {
	series := w.readings[r.Instrument]
	if n := len(series); n > 0 {
		last := series[n-1].Timestamp
		if r.Timestamp < last {
			return models.ErrOutOfOrderEvent
		}
		if r.Timestamp == last {
			series[n-1] = r
			w.lastReading[r.Instrument] = r
			return nil
		}
	}
	series = append(series, r)
	w.readings[r.Instrument] = w.evictReadings(series)
	w.lastReading[r.Instrument] = r
	w.hasReading[r.Instrument] = true
	return nil
}

func (w *Window) evictBars(series []BarEntry) []BarEntry {
	if n := len(series); n > w.maxBars {
		series = series[n-w.maxBars:]
	}
	horizon := series[len(series)-1].Bar.Timestamp - int64(w.retention/time.Second)
	i := 0
	for i < len(series) && series[i].Bar.Timestamp < horizon {
		i++
	}
	return series[i:]
}

func (w *Window) evictReadings(series []models.LiquidationReading) []models.LiquidationReading {
	if n := len(series); n > w.maxReadings {
		series = series[n-w.maxReadings:]
	}
	horizon := series[len(series)-1].Timestamp - int64(w.retention/time.Second)
	i := 0
	for i < len(series) && series[i].Timestamp < horizon {
		i++
	}
	return series[i:]
}

// Bars returns the retained bar entries for an instrument, oldest first.
// The returned slice aliases internal storage; callers must not mutate it.
func (w *Window) Bars(instrument string) []BarEntry {
	return w.bars[instrument]
}

// RecentBars returns up to limit most recent bars, oldest first, as copies.
func (w *Window) RecentBars(instrument string, limit int) []models.Bar {
	series := w.bars[instrument]
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	out := make([]models.Bar, len(series))
	for i, e := range series {
		out[i] = e.Bar
	}
	return out
}

// Len reports the retained bar count for an instrument.
func (w *Window) Len(instrument string) int { return len(w.bars[instrument]) }

// ReadingCount reports the retained reading count for an instrument.
func (w *Window) ReadingCount(instrument string) int { return len(w.readings[instrument]) }

// HasReading reports whether a carry-forward source exists for an instrument.
func (w *Window) HasReading(instrument string) bool { return w.hasReading[instrument] }

// PercentileRank returns count(x <= v) / size over the population, the
// inclusive ranking the trigger thresholds were calibrated against. Returns 0
// for an empty population.
func PercentileRank(v float64, population []float64) float64 {
	if len(population) == 0 {
		return 0
	}
	le := 0
	for _, x := range population {
		if x <= v {
			le++
		}
	}
	return float64(le) / float64(len(population))
}

// percentile helpers ranking the newest entry against the retained series,
// newest value included in its own reference population.

func (w *Window) volumePct(instrument string) float64 {
	series := w.bars[instrument]
	if len(series) == 0 {
		return 0
	}
	v := series[len(series)-1].Bar.Volume
	le := 0
	for i := range series {
		if series[i].Bar.Volume <= v {
			le++
		}
	}
	return float64(le) / float64(len(series))
}

func (w *Window) liqPct(instrument string, pick func(BarEntry) float64) float64 {
	series := w.bars[instrument]
	if len(series) == 0 {
		return 0
	}
	v := pick(series[len(series)-1])
	le := 0
	for i := range series {
		if pick(series[i]) <= v {
			le++
		}
	}
	return float64(le) / float64(len(series))
}
