package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"LiqPulse/internal/domain/models"
	drepo "LiqPulse/internal/domain/repository"
	"LiqPulse/internal/services/features"
	xlogger "LiqPulse/pkg/logger"
)

// EngineConfig fixes the run parameters of the core loop.
type EngineConfig struct {
	// PrimaryInstrument drives signal evaluation, trade pricing and the
	// expiry sweep clock.
	PrimaryInstrument string
	// MomentumInstrument supplies the sign the flip rules watch.
	MomentumInstrument string
	BarInterval        time.Duration
	WindowBars         int
	WindowReadings     int
	Retention          time.Duration
}

// Engine is the single-threaded core: each inbound event is processed to
// completion (window update, feature recompute, evaluation, sweep, emission)
// before the next is admitted. That total ordering keeps the gate and the
// one-open-trade-per-signal invariant race-free; the mutex below guards the
// window, trade book and snapshots against the concurrent HTTP read path.
type Engine struct {
	cfg     EngineConfig
	rules   []Rule
	feats   *features.Engine
	book    *TradeBook
	log     *xlogger.Logger
	metrics drepo.Metrics

	in  chan models.Inbound
	out chan models.Event

	pendingOnset bool
	lastPrimary  float64

	mu           sync.RWMutex
	prevSnapshot models.FeatureSnapshot
	lastSnapshot models.FeatureSnapshot
	haveSnapshot bool
	startedAt    int64
}

// NewEngine builds the core with its feature window and trade book.
func NewEngine(cfg EngineConfig, rules []Rule, log *xlogger.Logger, metrics drepo.Metrics) *Engine {
	if cfg.WindowBars <= 0 {
		cfg.WindowBars = features.DefaultWindowBars
	}
	if cfg.WindowReadings <= 0 {
		cfg.WindowReadings = features.DefaultWindowHours
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.BarInterval <= 0 {
		cfg.BarInterval = 5 * time.Minute
	}
	return &Engine{
		cfg:       cfg,
		rules:     rules,
		feats:     features.NewEngine(cfg.WindowBars, cfg.WindowReadings, cfg.Retention),
		book:      NewTradeBook(SignalIDs(rules), cfg.BarInterval),
		log:       log,
		metrics:   metrics,
		in:        make(chan models.Inbound, 1024),
		out:       make(chan models.Event, 1024),
		startedAt: time.Now().Unix(),
	}
}

// Submit queues an inbound event for processing. Blocks when the engine is
// saturated so ingestion applies backpressure instead of dropping input.
func (e *Engine) Submit(ev models.Inbound) { e.in <- ev }

// Events exposes the outbound event stream consumed by the dispatcher.
func (e *Engine) Events() <-chan models.Event { return e.out }

// Run consumes inbound events until the context is cancelled. Must be called
// from exactly one goroutine.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(e.out)
			return ctx.Err()
		case ev := <-e.in:
			start := time.Now()
			switch v := ev.(type) {
			case models.NewBar:
				e.handleBar(v.Bar)
			case models.NewLiquidationReading:
				e.handleReading(v.Reading, v.IsOnset)
			}
			e.metrics.RecordLatency("engine_event", time.Since(start).Seconds())
		}
	}
}

func (e *Engine) handleBar(b models.Bar) {
	if !b.Valid() {
		e.metrics.RecordReject("malformed_bar")
		e.log.Warn("discarding malformed bar",
			xlogger.String("instrument", b.Instrument), xlogger.Int64("ts", b.Timestamp))
		return
	}

	e.mu.Lock()
	isNew, err := e.feats.ObserveBar(b)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, models.ErrOutOfOrderEvent) {
			e.metrics.RecordReject("out_of_order_bar")
			e.log.Warn("discarding out-of-order bar",
				xlogger.String("instrument", b.Instrument), xlogger.Int64("ts", b.Timestamp))
		}
		return
	}
	e.metrics.RecordIngest("bar", b.Instrument)
	e.metrics.RecordLastPrice(b.Instrument, b.Close)
	e.emit(models.BarAccepted{Bar: b})

	if b.Instrument == e.cfg.PrimaryInstrument {
		e.lastPrimary = b.Close
		e.recomputeAndTrade(b, isNew)
		return
	}
	// hold duration is measured in elapsed bar time, so any instrument's
	// new bar advances the expiry clock
	if isNew && e.lastPrimary > 0 {
		e.sweep(b.Timestamp)
	}
}

// recomputeAndTrade runs the feature -> evaluate -> sweep -> open pipeline
// for a primary-instrument bar. Duplicate updates of the same bar refresh
// the snapshot but never re-evaluate signals.
func (e *Engine) recomputeAndTrade(b models.Bar, isNew bool) {
	snap := e.feats.Snapshot(e.cfg.PrimaryInstrument, b.Timestamp)

	e.mu.Lock()
	if isNew && e.haveSnapshot {
		e.prevSnapshot = e.lastSnapshot
	}
	prev := e.prevSnapshot
	e.lastSnapshot = snap
	e.haveSnapshot = true
	e.mu.Unlock()

	e.emit(models.FeatureUpdated{Snapshot: snap.Clone()})

	if !isNew {
		return
	}

	cond := Condition{
		Cur:                snap,
		Prev:               prev,
		Onset:              e.pendingOnset,
		MomentumInstrument: e.cfg.MomentumInstrument,
	}
	fires := Evaluate(e.rules, cond, b.Timestamp, int64(e.cfg.BarInterval/time.Second), e.book.StatesRef())
	e.pendingOnset = false

	// settle expiries before admitting new entries, as the backtest did
	e.sweep(b.Timestamp)

	for _, f := range fires {
		e.openTrade(f, b.Close, b.Timestamp)
	}
}

func (e *Engine) openTrade(f models.Fire, price float64, ts int64) {
	e.mu.Lock()
	t, err := e.book.OpenTrade(f.SignalID, f.Direction, f.HoldBars, price, ts)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, models.ErrStateConflict) {
			e.metrics.RecordReject("state_conflict")
			e.log.Warn("signal fired with trade still open",
				xlogger.String("signal", f.SignalID))
		}
		return
	}
	e.metrics.RecordSignal(f.SignalID, string(f.Direction))
	e.metrics.RecordTrade(f.SignalID, string(models.TradeOpen))
	e.log.Info("opened trade",
		xlogger.Int64("id", t.ID),
		xlogger.String("signal", t.SignalID),
		xlogger.String("direction", string(t.Direction)),
		xlogger.Float64("entry_price", t.EntryPrice),
		xlogger.Int("hold_bars", t.HoldBars))
	e.emit(models.SignalFired{
		SignalID:  t.SignalID,
		Direction: t.Direction,
		Price:     t.EntryPrice,
		Timestamp: t.EntryTS,
	})
}

func (e *Engine) sweep(now int64) {
	e.mu.Lock()
	closed := e.book.Sweep(now, e.lastPrimary)
	e.mu.Unlock()
	for _, t := range closed {
		e.metrics.RecordTrade(t.SignalID, string(models.TradeClosed))
		e.log.Info("closed trade",
			xlogger.Int64("id", t.ID),
			xlogger.String("signal", t.SignalID),
			xlogger.Float64("gross_bps", *t.GrossBps))
		e.emit(models.TradeExited{
			SignalID:   t.SignalID,
			Direction:  t.Direction,
			EntryPrice: t.EntryPrice,
			ExitPrice:  *t.ExitPrice,
			GrossBps:   *t.GrossBps,
			Timestamp:  *t.ExitTS,
		})
	}
}

func (e *Engine) handleReading(r models.LiquidationReading, onset bool) {
	if !r.Valid() {
		e.metrics.RecordReject("malformed_reading")
		e.log.Warn("discarding malformed liquidation reading",
			xlogger.String("instrument", r.Instrument), xlogger.Int64("ts", r.Timestamp))
		return
	}
	e.mu.Lock()
	err := e.feats.ObserveReading(r)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, models.ErrOutOfOrderEvent) {
			e.metrics.RecordReject("out_of_order_reading")
			e.log.Warn("discarding out-of-order liquidation reading",
				xlogger.String("instrument", r.Instrument), xlogger.Int64("ts", r.Timestamp))
		}
		return
	}
	e.metrics.RecordIngest("reading", r.Instrument)
	e.emit(models.ReadingAccepted{Reading: r, IsOnset: onset})
	if onset && r.Instrument == e.cfg.PrimaryInstrument {
		// consumed by the next primary bar's evaluation
		e.pendingOnset = true
	}
}

// emit forwards an event without ever blocking the core; a saturated
// dispatcher drops the event and the drop is counted.
func (e *Engine) emit(ev models.Event) {
	select {
	case e.out <- ev:
	default:
		e.metrics.RecordReject("event_dropped")
	}
}

// --- point-in-time views for external readers ---

// LatestSnapshot returns the newest feature snapshot, if any.
func (e *Engine) LatestSnapshot() (models.FeatureSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.haveSnapshot {
		return models.FeatureSnapshot{}, false
	}
	return e.lastSnapshot.Clone(), true
}

// SignalStates returns a copy of the gate table.
func (e *Engine) SignalStates() map[string]models.SignalState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.States()
}

// Trades returns trades filtered by status ("all", "open", "closed").
func (e *Engine) Trades(status string, limit int) []models.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Trades(status, limit)
}

// RecentBars returns up to limit retained bars for an instrument.
func (e *Engine) RecentBars(instrument string, limit int) []models.Bar {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feats.Window().RecentBars(instrument, limit)
}

// StartedAt reports when this run began, unix seconds.
func (e *Engine) StartedAt() int64 { return e.startedAt }

// Config exposes the fixed run parameters.
func (e *Engine) Config() EngineConfig { return e.cfg }
