package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiqPulse/internal/domain/models"
	xlogger "LiqPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordIngest(string, string)     {}
func (nopMetrics) RecordReject(string)             {}
func (nopMetrics) RecordSignal(string, string)     {}
func (nopMetrics) RecordTrade(string, string)      {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func newTestLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestEngine(t *testing.T, momentum string) *Engine {
	t.Helper()
	log := newTestLogger(t)
	return NewEngine(EngineConfig{
		PrimaryInstrument:  "BTC-USD",
		MomentumInstrument: momentum,
		BarInterval:        5 * time.Minute,
	}, DefaultRules(), log, nopMetrics{})
}

func primaryBar(ts int64, close, volume float64) models.Bar {
	return models.Bar{
		Timestamp:  ts,
		Instrument: "BTC-USD",
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     volume,
	}
}

func reading(ts int64, long, short float64) models.LiquidationReading {
	return models.LiquidationReading{
		Timestamp:  ts,
		Instrument: "BTC-USD",
		LongValue:  long,
		ShortValue: short,
	}
}

func drain(e *Engine) []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-e.out:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func firesOf(events []models.Event, signalID string) []models.SignalFired {
	var out []models.SignalFired
	for _, ev := range events {
		if f, ok := ev.(models.SignalFired); ok && f.SignalID == signalID {
			out = append(out, f)
		}
	}
	return out
}

func exitsOf(events []models.Event, signalID string) []models.TradeExited {
	var out []models.TradeExited
	for _, ev := range events {
		if x, ok := ev.(models.TradeExited); ok && x.SignalID == signalID {
			out = append(out, x)
		}
	}
	return out
}

// Full SIG-A lifecycle: a mid-range reading does not fire even with onset,
// an extreme one fires SHORT, the trade auto-closes after its hold with a
// positive return on the price decline.
func TestEngineOnsetLifecycle(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	ts := int64(1_000_000_200) // not an hour boundary, irrelevant here

	// warm history: ten hourly readings of varied magnitude, two bars each,
	// fed without the onset flag so nothing fires during warmup
	longs := []float64{300, 900, 100, 700, 1000, 200, 800, 400, 600, 450}
	for _, v := range longs {
		e.handleReading(reading(ts, v, v), false)
		for j := 0; j < 2; j++ {
			ts += 300
			e.handleBar(primaryBar(ts, 100, float64(ts%997)))
		}
	}
	drain(e)

	// mid-range reading with onset: not extreme, no fire
	e.handleReading(reading(ts+60, 500, 0), true)
	ts += 300
	e.handleBar(primaryBar(ts, 100, 50))
	events := drain(e)
	assert.Empty(t, firesOf(events, "SIG-A"), "mid-range reading must not fire")
	assert.Empty(t, firesOf(events, "SIG-B"))

	// extreme long liquidations with onset: SIG-A fires SHORT at the bar close
	e.handleReading(reading(ts+60, 50_000, 0), true)
	ts += 300
	e.handleBar(primaryBar(ts, 100, 50))
	events = drain(e)
	fires := firesOf(events, "SIG-A")
	require.Len(t, fires, 1)
	assert.Equal(t, models.Short, fires[0].Direction)
	assert.Equal(t, 100.0, fires[0].Price)
	assert.Empty(t, firesOf(events, "SIG-B"), "zero short value must not rank extreme")

	open := e.Trades("open", 0)
	require.Len(t, open, 1)
	assert.Equal(t, "SIG-A", open[0].SignalID)

	// eight bars later the hold elapses and the sweep closes the trade
	for i := 0; i < 8; i++ {
		ts += 300
		e.handleBar(primaryBar(ts, 99, 50))
	}
	events = drain(e)
	exits := exitsOf(events, "SIG-A")
	require.Len(t, exits, 1)
	assert.InDelta(t, 100.0, exits[0].GrossBps, 1e-9, "short into a 1%% decline is +100 bps")
	assert.Empty(t, e.Trades("open", 0))

	st := e.SignalStates()["SIG-A"]
	assert.Nil(t, st.OpenTradeID)
	assert.NotNil(t, st.LastFireTS, "fire history survives the close")
}

// A second trigger inside the cooldown window is suppressed; after the
// cooldown the signal can fire again.
func TestEngineCooldownDedup(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	ts := int64(2_000_000_100)

	for i := 0; i < 5; i++ {
		ts += 300
		e.handleBar(primaryBar(ts, 100, 10))
	}

	e.handleReading(reading(ts+60, 10_000, 0), true)
	ts += 300
	e.handleBar(primaryBar(ts, 100, 10))

	// re-armed onset one bar later: still cooling down
	e.handleReading(reading(ts+60, 20_000, 0), true)
	ts += 300
	e.handleBar(primaryBar(ts, 100, 10))

	events := drain(e)
	require.Len(t, firesOf(events, "SIG-A"), 1, "cooldown must suppress the second trigger")

	// ride out the cooldown, then a fresh onset fires again
	for i := 0; i < 8; i++ {
		ts += 300
		e.handleBar(primaryBar(ts, 100, 10))
	}
	e.handleReading(reading(ts+60, 30_000, 0), true)
	ts += 300
	e.handleBar(primaryBar(ts, 100, 10))

	events = drain(e)
	require.Len(t, firesOf(events, "SIG-A"), 1, "expected a fire after cooldown")
}

// An update to the current bar refreshes features but never re-evaluates;
// the pending onset survives until the next new bar.
func TestEngineDuplicateBarNoEvaluation(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	ts := int64(3_000_000_300)

	for i := 0; i < 5; i++ {
		ts += 300
		e.handleBar(primaryBar(ts, 100, 10))
	}
	drain(e)

	e.handleReading(reading(ts+60, 10_000, 0), true)

	// live update of the same bar: feature refresh only
	e.handleBar(primaryBar(ts, 101, 12))
	events := drain(e)
	assert.Empty(t, firesOf(events, "SIG-A"), "duplicate bar must not evaluate")
	hasFeature := false
	for _, ev := range events {
		if _, ok := ev.(models.FeatureUpdated); ok {
			hasFeature = true
		}
	}
	assert.True(t, hasFeature, "duplicate bar still refreshes features")

	// the next new bar consumes the pending onset
	ts += 300
	e.handleBar(primaryBar(ts, 101, 12))
	events = drain(e)
	require.Len(t, firesOf(events, "SIG-A"), 1)
}

// A bearish momentum flip with elevated long liquidations fires SIG-C once;
// the sign staying negative afterwards is not a new flip.
func TestEngineFlipScenario(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	t0 := int64(1_600_000_000) // multiple of 3600: bars land on hour boundaries

	// carried long liquidations rank at 1.0 throughout
	e.handleReading(reading(t0-60, 1000, 1000), false)

	// rising hourly closes establish a positive sign; shrinking volumes keep
	// the newest bar's volume rank low so SIG-D stays out of the picture
	ts := t0
	for i := 0; i < 8; i++ {
		e.handleBar(primaryBar(ts, 100+float64(i), float64(1000-i)))
		ts += 3600
	}
	drain(e)

	// steep hourly decline until the sign flips
	price := 100.0
	for i := 0; i < 10; i++ {
		price -= 20
		if price < 1 {
			price = 1
		}
		e.handleBar(primaryBar(ts, price, float64(900-i)))
		ts += 3600
	}
	events := drain(e)

	fires := firesOf(events, "SIG-C")
	require.Len(t, fires, 1, "one flip, one fire")
	assert.Equal(t, models.Short, fires[0].Direction)
	assert.Empty(t, firesOf(events, "SIG-D"), "low volume rank must keep SIG-D silent")
}

func TestEngineRejectsMalformedAndStale(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")

	e.handleBar(primaryBar(1000, 100, 10))
	e.handleBar(primaryBar(700, 99, 10)) // stale
	e.handleBar(models.Bar{Timestamp: 1300, Instrument: "BTC-USD", Open: -1, High: 1, Low: 1, Close: 1, Volume: 1})

	events := drain(e)
	accepted := 0
	for _, ev := range events {
		if _, ok := ev.(models.BarAccepted); ok {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, e.RecentBars("BTC-USD", 0), 1)
}

// Ingest and the HTTP read path run on different goroutines; this only has
// teeth under the race detector.
func TestEngineConcurrentReaders(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")

	const bars = 500
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts := int64(5_000_000_100)
		for i := 0; i < bars; i++ {
			ts += 300
			e.handleBar(primaryBar(ts, 100, float64(i+1)))
			if i%50 == 0 {
				e.handleReading(reading(ts+60, float64(i+1), float64(i+1)), false)
			}
		}
	}()

	for {
		select {
		case <-done:
			assert.Len(t, e.RecentBars("BTC-USD", 0), bars)
			_, ok := e.LatestSnapshot()
			assert.True(t, ok)
			return
		default:
			_ = e.RecentBars("BTC-USD", 50)
			_, _ = e.LatestSnapshot()
			_ = e.SignalStates()
			_ = e.Trades("all", 10)
		}
	}
}

func TestEngineSnapshotBounds(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	ts := int64(4_000_000_500)

	vols := []float64{10, 40, 20, 30, 50}
	for _, v := range vols {
		ts += 300
		e.handleBar(primaryBar(ts, 100, v))
	}

	snap, ok := e.LatestSnapshot()
	require.True(t, ok)
	assert.Equal(t, 1.0, snap.VolumePct, "newest volume is the window max")
	assert.LessOrEqual(t, snap.LongLiqPct, 1.0)
	assert.GreaterOrEqual(t, snap.LongLiqPct, 0.0)
}
