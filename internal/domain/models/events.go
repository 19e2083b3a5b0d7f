package models

// Event is the sum type of outbound events the engine emits for display and
// durable recording. Sinks receive events one-way and can never mutate core
// state.
type Event interface {
	// EventType is the wire discriminator used by the WebSocket and Kafka
	// payloads.
	EventType() string
}

// BarAccepted is emitted for every accepted bar update.
type BarAccepted struct {
	Bar Bar `json:"bar"`
}

// ReadingAccepted is emitted for every accepted hourly liquidation reading.
type ReadingAccepted struct {
	Reading LiquidationReading `json:"reading"`
	IsOnset bool               `json:"is_onset"`
}

// FeatureUpdated is emitted after each feature recompute on the primary
// instrument.
type FeatureUpdated struct {
	Snapshot FeatureSnapshot `json:"snapshot"`
}

// SignalFired is emitted when a rule triggers and a trade is opened.
type SignalFired struct {
	SignalID  string    `json:"signal"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"entry_price"`
	Timestamp int64     `json:"ts"`
}

// TradeExited is emitted when an open trade reaches its hold duration and is
// closed.
type TradeExited struct {
	SignalID   string    `json:"signal"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	GrossBps   float64   `json:"gross_bps"`
	Timestamp  int64     `json:"ts"`
}

func (BarAccepted) EventType() string     { return "candle" }
func (ReadingAccepted) EventType() string { return "liq_update" }
func (FeatureUpdated) EventType() string  { return "feature_update" }
func (SignalFired) EventType() string     { return "signal_fire" }
func (TradeExited) EventType() string     { return "trade_close" }
