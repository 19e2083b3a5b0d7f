package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"LiqPulse/internal/domain/models"
	"LiqPulse/internal/domain/repository"
	pkgch "LiqPulse/pkg/clickhouse"
	applogger "LiqPulse/pkg/logger"
)

var _ repository.EventSink = (*CHJournal)(nil)

// SchemaStatements returns the idempotent DDL the journal needs, executed at
// startup through the ClickHouse client's InitSchema.
func SchemaStatements() []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS liqpulse",
		`CREATE TABLE IF NOT EXISTS liqpulse.bars (
            ts DateTime, instrument String,
            open Float64, high Float64, low Float64, close Float64, volume Float64
        ) ENGINE=ReplacingMergeTree ORDER BY (instrument, ts)`,
		`CREATE TABLE IF NOT EXISTS liqpulse.liq_readings (
            ts DateTime, instrument String,
            long_liq_usd Float64, short_liq_usd Float64
        ) ENGINE=ReplacingMergeTree ORDER BY (instrument, ts)`,
		`CREATE TABLE IF NOT EXISTS liqpulse.signal_fires (
            ts DateTime, signal String, direction String, entry_price Float64
        ) ENGINE=MergeTree ORDER BY (signal, ts)`,
		`CREATE TABLE IF NOT EXISTS liqpulse.trade_closes (
            ts DateTime, signal String, direction String,
            entry_price Float64, exit_price Float64, gross_bps Float64
        ) ENGINE=MergeTree ORDER BY (signal, ts)`,
	}
}

// CHJournal persists bars, liquidation readings, signal fires and trade
// closes to ClickHouse so a
// restarted instance has a durable record of what the run produced. Feature
// snapshots are not journaled; they are derivable from the bars.
type CHJournal struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewCHJournal creates a ClickHouse-backed event journal.
func NewCHJournal(ch *pkgch.Client) *CHJournal {
	return &CHJournal{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (j *CHJournal) SetLogger(l *applogger.Logger) { j.l = l }

func (j *CHJournal) Deliver(ctx context.Context, ev models.Event) error {
	switch v := ev.(type) {
	case models.BarAccepted:
		return j.insertBar(ctx, v.Bar)
	case models.ReadingAccepted:
		return j.insertReading(ctx, v.Reading)
	case models.SignalFired:
		return j.insertFire(ctx, v)
	case models.TradeExited:
		return j.insertClose(ctx, v)
	default:
		// feature updates are display-only
		return nil
	}
}

func (j *CHJournal) insertBar(ctx context.Context, b models.Bar) error {
	const q = `INSERT INTO liqpulse.bars (ts, instrument, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		time.Unix(b.Timestamp, 0), b.Instrument, b.Open, b.High, b.Low, b.Close, b.Volume)
	if err != nil {
		j.logErr("bar", err)
		return fmt.Errorf("journal bar: %w", err)
	}
	return nil
}

func (j *CHJournal) insertReading(ctx context.Context, r models.LiquidationReading) error {
	const q = `INSERT INTO liqpulse.liq_readings (ts, instrument, long_liq_usd, short_liq_usd) VALUES (?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		time.Unix(r.Timestamp, 0), r.Instrument, r.LongValue, r.ShortValue)
	if err != nil {
		j.logErr("liq_reading", err)
		return fmt.Errorf("journal liq reading: %w", err)
	}
	return nil
}

func (j *CHJournal) insertFire(ctx context.Context, ev models.SignalFired) error {
	const q = `INSERT INTO liqpulse.signal_fires (ts, signal, direction, entry_price) VALUES (?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		time.Unix(ev.Timestamp, 0), ev.SignalID, string(ev.Direction), ev.Price)
	if err != nil {
		j.logErr("signal_fire", err)
		return fmt.Errorf("journal signal fire: %w", err)
	}
	return nil
}

func (j *CHJournal) insertClose(ctx context.Context, ev models.TradeExited) error {
	const q = `INSERT INTO liqpulse.trade_closes (ts, signal, direction, entry_price, exit_price, gross_bps) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		time.Unix(ev.Timestamp, 0), ev.SignalID, string(ev.Direction), ev.EntryPrice, ev.ExitPrice, ev.GrossBps)
	if err != nil {
		j.logErr("trade_close", err)
		return fmt.Errorf("journal trade close: %w", err)
	}
	return nil
}

func (j *CHJournal) logErr(kind string, err error) {
	if j.l != nil {
		j.l.Error("clickhouse journal insert error",
			applogger.String("kind", kind), applogger.Error(err))
	}
}

func (j *CHJournal) Health(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *CHJournal) Close() error {
	return nil // pool managed by pkg client
}
