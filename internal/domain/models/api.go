package models

// Requests for the REST endpoints. Defined in domain for consistency and reuse.

type CandlesRequest struct {
	Instrument string `query:"instrument" json:"instrument" default:"BTC-USD" validate:"required"`
	Limit      int    `query:"limit" json:"limit" default:"576" validate:"gte=1,lte=8640"`
	// From/To accept RFC3339 or unix seconds; range filtering activates when
	// From parses, To defaults to now.
	From string `query:"from" json:"from,omitempty"`
	To   string `query:"to" json:"to,omitempty"`
}

type TradesRequest struct {
	Status string `query:"status" json:"status" default:"all" validate:"oneof=all open closed"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// SignalsResponse bundles the gate table with the latest feature snapshot.
type SignalsResponse struct {
	SignalStates map[string]SignalState `json:"signal_states"`
	Features     *FeatureSnapshot       `json:"features,omitempty"`
}

// ConfigResponse reports the fixed run parameters for the viewer.
type ConfigResponse struct {
	PrimaryInstrument  string   `json:"primary_instrument"`
	MomentumInstrument string   `json:"momentum_instrument"`
	Instruments        []string `json:"instruments"`
	BarSeconds         int64    `json:"bar_seconds"`
	WindowBars         int      `json:"window_bars"`
	StartedAt          int64    `json:"started_at"`
}
