package usecase

import (
	"context"
	"sort"
	"time"

	"LiqPulse/internal/domain/models"
	drepo "LiqPulse/internal/domain/repository"
	xlogger "LiqPulse/pkg/logger"
)

const maxReconnectWait = 30 * time.Second

// BarCollector bootstraps the engine from REST history and then pumps live
// WebSocket candle updates into it.
type BarCollector struct {
	stream      drepo.BarStream
	engine      *Engine
	metrics     drepo.Metrics
	log         *xlogger.Logger
	instruments []string
	lookback    time.Duration

	// base delay before a reconnect attempt, doubled up to maxReconnectWait
	reconnectWait time.Duration
}

// NewBarCollector creates a collector for the given instruments. lookback is
// the backfill horizon, normally the full window retention.
func NewBarCollector(stream drepo.BarStream, engine *Engine, metrics drepo.Metrics, log *xlogger.Logger, instruments []string, lookback time.Duration) *BarCollector {
	return &BarCollector{
		stream:        stream,
		engine:        engine,
		metrics:       metrics,
		log:           log,
		instruments:   instruments,
		lookback:      lookback,
		reconnectWait: time.Second,
	}
}

// IsConnected reports whether the live stream is up.
func (c *BarCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start backfills history, connects the live stream and begins consuming.
// Backfill runs before subscribe so live updates land on a warm window.
func (c *BarCollector) Start(ctx context.Context) error {
	now := time.Now().Unix()
	from := now - int64(c.lookback/time.Second)
	for _, instrument := range c.instruments {
		bars, err := c.stream.Backfill(ctx, instrument, from, now)
		if err != nil {
			return err
		}
		for _, b := range bars {
			c.engine.Submit(models.NewBar{Bar: b})
		}
	}

	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	barCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, barCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, barCh <-chan models.Bar, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err == nil {
				continue
			}
			if err != nil {
				c.metrics.RecordReject("stream_error")
				c.log.Warn("bar stream error, reconnecting", xlogger.Error(err))
			}
			// an error or a closed channel both mean the stream is dead
			if barCh, errCh = c.reestablish(ctx); barCh == nil {
				return
			}
		case b, ok := <-barCh:
			if !ok {
				if barCh, errCh = c.reestablish(ctx); barCh == nil {
					return
				}
				continue
			}
			c.engine.Submit(models.NewBar{Bar: b})
		}
	}
}

// reestablish retries Reconnect with doubling delay until the stream is back
// or the context is cancelled. Returns nil channels on cancellation.
func (c *BarCollector) reestablish(ctx context.Context) (<-chan models.Bar, <-chan error) {
	wait := c.reconnectWait
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(wait):
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordReject("stream_reconnect")
			c.log.Error("bar stream reconnect failed", xlogger.Error(err))
			if wait < maxReconnectWait {
				wait *= 2
			}
			continue
		}
		return c.stream.Read(ctx)
	}
}

// Stop closes the live stream.
func (c *BarCollector) Stop() error { return c.stream.Close() }

// LiquidationPoller bootstraps hourly liquidation history and then polls for
// new records. A record whose hour was never seen before is submitted with
// the onset flag set; re-polls of an already-seen hour refresh the value
// without re-arming onset-gated rules.
type LiquidationPoller struct {
	source      drepo.LiquidationSource
	engine      *Engine
	metrics     drepo.Metrics
	log         *xlogger.Logger
	instruments []string
	interval    time.Duration
	bootstrap   int

	lastSeen map[string]int64
}

// NewLiquidationPoller creates a poller. bootstrap is the number of hourly
// records fetched per instrument at startup.
func NewLiquidationPoller(source drepo.LiquidationSource, engine *Engine, metrics drepo.Metrics, log *xlogger.Logger, instruments []string, interval time.Duration, bootstrap int) *LiquidationPoller {
	return &LiquidationPoller{
		source:      source,
		engine:      engine,
		metrics:     metrics,
		log:         log,
		instruments: instruments,
		interval:    interval,
		bootstrap:   bootstrap,
		lastSeen:    make(map[string]int64),
	}
}

// Start backfills history and launches the polling loop.
func (p *LiquidationPoller) Start(ctx context.Context) error {
	from := time.Now().Unix() - int64(p.bootstrap)*3600
	for _, instrument := range p.instruments {
		rows, err := p.source.History(ctx, instrument, from, p.bootstrap)
		if err != nil {
			return err
		}
		for _, r := range rows {
			p.engine.Submit(models.NewLiquidationReading{Reading: r})
			if r.Timestamp > p.lastSeen[instrument] {
				p.lastSeen[instrument] = r.Timestamp
			}
		}
	}

	go p.poll(ctx)
	return nil
}

func (p *LiquidationPoller) poll(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, instrument := range p.instruments {
				p.pollOne(ctx, instrument)
			}
		}
	}
}

func (p *LiquidationPoller) pollOne(ctx context.Context, instrument string) {
	// two records cover the still-forming hour plus the last completed one
	rows, err := p.source.Latest(ctx, instrument, 2)
	if err != nil {
		p.metrics.RecordReject("liq_poll_error")
		p.log.Warn("liquidation poll failed",
			xlogger.String("instrument", instrument), xlogger.Error(err))
		return
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
	for _, r := range rows {
		last := p.lastSeen[instrument]
		if r.Timestamp < last {
			continue // completed hour already ingested
		}
		onset := r.Timestamp > last
		p.engine.Submit(models.NewLiquidationReading{Reading: r, IsOnset: onset})
		if onset {
			p.lastSeen[instrument] = r.Timestamp
		}
	}
}
