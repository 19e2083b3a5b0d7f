package usecase

import (
	"math"
	"time"

	"LiqPulse/internal/domain/models"
)

// TradeBook owns every paper trade and the per-signal gate state. Single
// writer: all mutation happens on the engine goroutine; accessors hand out
// copies.
type TradeBook struct {
	barInterval time.Duration
	nextID      int64
	trades      []*models.Trade
	states      map[string]*models.SignalState
}

// NewTradeBook seeds gate state for the given signal ids.
func NewTradeBook(signalIDs []string, barInterval time.Duration) *TradeBook {
	states := make(map[string]*models.SignalState, len(signalIDs))
	for _, id := range signalIDs {
		states[id] = &models.SignalState{SignalID: id}
	}
	return &TradeBook{barInterval: barInterval, nextID: 1, states: states}
}

// OpenTrade creates an OPEN trade for a fired signal and stamps the gate
// state (last fire time, direction, open trade reference). Fails with
// ErrStateConflict when the signal already references an open trade; the
// existing trade is untouched.
func (b *TradeBook) OpenTrade(signalID string, dir models.Direction, holdBars int, price float64, ts int64) (*models.Trade, error) {
	st, ok := b.states[signalID]
	if !ok {
		st = &models.SignalState{SignalID: signalID}
		b.states[signalID] = st
	}
	if st.OpenTradeID != nil {
		return nil, models.ErrStateConflict
	}

	t := &models.Trade{
		ID:         b.nextID,
		SignalID:   signalID,
		Direction:  dir,
		EntryTS:    ts,
		EntryPrice: price,
		HoldBars:   holdBars,
		Status:     models.TradeOpen,
	}
	b.nextID++
	b.trades = append(b.trades, t)

	fireTS := ts
	st.LastFireTS = &fireTS
	st.LastFireDirection = dir
	st.OpenTradeID = &t.ID
	return t, nil
}

// CloseTrade settles an open trade: gross return in basis points signed by
// direction, status CLOSED, gate's open-trade reference cleared. Fails with
// ErrInvalidPrice when either price is non-positive or non-finite, leaving
// the trade OPEN for the next sweep.
func (b *TradeBook) CloseTrade(t *models.Trade, exitPrice float64, ts int64) error {
	if !finitePositive(t.EntryPrice) || !finitePositive(exitPrice) {
		return models.ErrInvalidPrice
	}
	bps := (exitPrice/t.EntryPrice - 1) * 10000 * t.Direction.Sign()

	exitTS := ts
	t.ExitTS = &exitTS
	t.ExitPrice = &exitPrice
	t.GrossBps = &bps
	t.Status = models.TradeClosed

	if st, ok := b.states[t.SignalID]; ok {
		st.OpenTradeID = nil
	}
	return nil
}

// Sweep closes every open trade, across all signals, whose hold duration has
// elapsed in bar time. Trades that fail to close (invalid price) stay OPEN
// and are retried on the next sweep. Returns the trades closed this pass.
func (b *TradeBook) Sweep(now int64, price float64) []*models.Trade {
	barSecs := int64(b.barInterval / time.Second)
	var closed []*models.Trade
	for _, t := range b.trades {
		if t.Status != models.TradeOpen {
			continue
		}
		if now-t.EntryTS < int64(t.HoldBars)*barSecs {
			continue
		}
		if err := b.CloseTrade(t, price, now); err != nil {
			continue
		}
		closed = append(closed, t)
	}
	return closed
}

// States returns a copy of the gate table.
func (b *TradeBook) States() map[string]models.SignalState {
	out := make(map[string]models.SignalState, len(b.states))
	for id, st := range b.states {
		out[id] = *st
	}
	return out
}

// StatesRef exposes the live gate table for the evaluator. Engine-goroutine
// use only.
func (b *TradeBook) StatesRef() map[string]*models.SignalState { return b.states }

// Trades returns copies of trades filtered by status ("open", "closed" or
// "all"), newest entry first, capped at limit when limit > 0.
func (b *TradeBook) Trades(status string, limit int) []models.Trade {
	out := make([]models.Trade, 0, len(b.trades))
	for i := len(b.trades) - 1; i >= 0; i-- {
		t := b.trades[i]
		switch status {
		case "open":
			if t.Status != models.TradeOpen {
				continue
			}
		case "closed":
			if t.Status != models.TradeClosed {
				continue
			}
		}
		out = append(out, *t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// OpenCount reports how many trades are currently OPEN.
func (b *TradeBook) OpenCount() int {
	n := 0
	for _, t := range b.trades {
		if t.Status == models.TradeOpen {
			n++
		}
	}
	return n
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
