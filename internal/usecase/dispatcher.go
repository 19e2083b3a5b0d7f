package usecase

import (
	"context"

	"LiqPulse/internal/domain/models"
	"LiqPulse/internal/domain/repository"
	xlogger "LiqPulse/pkg/logger"
)

// Dispatcher fans the engine's outbound stream out to every registered sink.
// Sinks are independent: one sink failing or lagging never withholds events
// from the others, and never feeds back into the core.
type Dispatcher struct {
	sinks   []repository.EventSink
	log     *xlogger.Logger
	metrics repository.Metrics
}

// NewDispatcher registers the sinks events will be fanned out to.
func NewDispatcher(log *xlogger.Logger, metrics repository.Metrics, sinks ...repository.EventSink) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: log, metrics: metrics}
}

// Run drains the event channel until it closes or the context is cancelled,
// then closes every sink.
func (d *Dispatcher) Run(ctx context.Context, events <-chan models.Event) error {
	defer d.closeAll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev models.Event) {
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, ev); err != nil {
			d.metrics.RecordReject("sink_error")
			d.log.Warn("sink rejected event",
				xlogger.String("event", ev.EventType()), xlogger.Error(err))
		}
	}
}

func (d *Dispatcher) closeAll() {
	for _, sink := range d.sinks {
		if err := sink.Close(); err != nil {
			d.log.Warn("sink close failed", xlogger.Error(err))
		}
	}
}
