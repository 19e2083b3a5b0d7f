package repository

import (
	"context"

	"LiqPulse/internal/domain/models"
)

// BarStream delivers live candle updates from an upstream exchange feed.
// Reconnect/backoff policy lives behind this interface; the core only
// consumes discrete, already-validated events.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Bar, <-chan error)
	Reconnect(ctx context.Context) error
	Backfill(ctx context.Context, instrument string, from, to int64) ([]models.Bar, error)
	Close() error
	IsConnected() bool
}

// LiquidationSource provides hourly liquidation readings, both historical
// backfill and latest records for the live polling loop.
type LiquidationSource interface {
	History(ctx context.Context, instrument string, from int64, limit int) ([]models.LiquidationReading, error)
	Latest(ctx context.Context, instrument string, n int) ([]models.LiquidationReading, error)
}

// EventSink receives outbound engine events. Implementations must not block
// the dispatcher; slow consumers buffer or drop internally.
type EventSink interface {
	Deliver(ctx context.Context, ev models.Event) error
	Close() error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordIngest(kind, instrument string)
	RecordReject(kind string)
	RecordSignal(signalID, direction string)
	RecordTrade(signalID, status string)
	RecordLastPrice(instrument string, price float64)
	RecordLatency(op string, seconds float64)
}
