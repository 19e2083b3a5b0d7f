package models

// Direction of a paper trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for LONG, -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == Long {
		return 1
	}
	return -1
}

// TradeStatus is the lifecycle state of a trade. Transitions OPEN -> CLOSED
// only, irreversibly.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is a hypothetical position opened by a fired signal. Created only by
// the lifecycle manager, mutated exactly once at close, never deleted.
// Exit fields and GrossBps are non-nil if and only if Status is CLOSED.
type Trade struct {
	ID         int64       `json:"id"`
	SignalID   string      `json:"signal"`
	Direction  Direction   `json:"direction"`
	EntryTS    int64       `json:"entry_ts"`
	EntryPrice float64     `json:"entry_price"`
	HoldBars   int         `json:"hold_bars"`
	ExitTS     *int64      `json:"exit_ts,omitempty"`
	ExitPrice  *float64    `json:"exit_price,omitempty"`
	GrossBps   *float64    `json:"gross_bps,omitempty"`
	Status     TradeStatus `json:"status"`
}

// SignalState is the per-signal dedup/onset gate: last fire time and
// direction plus a reference to the currently open trade, if any. Set as a
// whole at trade open; only OpenTradeID is cleared at close.
type SignalState struct {
	SignalID          string    `json:"signal"`
	LastFireTS        *int64    `json:"last_fire_ts,omitempty"`
	LastFireDirection Direction `json:"last_fire_dir,omitempty"`
	OpenTradeID       *int64    `json:"open_trade_id,omitempty"`
}

// Fire is the evaluator's record of a rule that triggered on the current bar.
type Fire struct {
	SignalID  string
	Direction Direction
	HoldBars  int
}
