package features

import (
	"errors"
	"testing"
	"time"

	"LiqPulse/internal/domain/models"
)

func bar(ts int64, close, volume float64) models.Bar {
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

func TestAppendBarOrdering(t *testing.T) {
	w := NewWindow(100, 10, 24*time.Hour)

	isNew, err := w.AppendBar(bar(1000, 100, 1))
	if err != nil || !isNew {
		t.Fatalf("expected new bar, got isNew=%v err=%v", isNew, err)
	}

	// same timestamp updates in place
	isNew, err = w.AppendBar(bar(1000, 101, 2))
	if err != nil || isNew {
		t.Fatalf("expected in-place update, got isNew=%v err=%v", isNew, err)
	}
	if got := w.Bars("BTC-USD")[0].Bar.Close; got != 101 {
		t.Fatalf("expected updated close 101, got %v", got)
	}
	if w.Len("BTC-USD") != 1 {
		t.Fatalf("expected 1 bar, got %d", w.Len("BTC-USD"))
	}

	// older timestamp is rejected and the window unchanged
	_, err = w.AppendBar(bar(700, 99, 1))
	if !errors.Is(err, models.ErrOutOfOrderEvent) {
		t.Fatalf("expected ErrOutOfOrderEvent, got %v", err)
	}
	if w.Len("BTC-USD") != 1 {
		t.Fatalf("window changed on rejected bar")
	}
}

func TestBarCapEviction(t *testing.T) {
	w := NewWindow(5, 10, 24*time.Hour)
	for i := 0; i < 8; i++ {
		if _, err := w.AppendBar(bar(int64(1000+i*300), 100, 1)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if w.Len("BTC-USD") != 5 {
		t.Fatalf("expected cap 5, got %d", w.Len("BTC-USD"))
	}
	if got := w.Bars("BTC-USD")[0].Bar.Timestamp; got != 1000+3*300 {
		t.Fatalf("expected oldest evicted, first ts %d", got)
	}
}

func TestBarRetentionEviction(t *testing.T) {
	w := NewWindow(100, 10, time.Hour)
	ts := []int64{1000, 1000 + 1800, 1000 + 7200}
	for _, v := range ts {
		if _, err := w.AppendBar(bar(v, 100, 1)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// horizon is newest - 1h; the first bar is older than that
	if w.Len("BTC-USD") != 2 {
		t.Fatalf("expected 2 bars after retention eviction, got %d", w.Len("BTC-USD"))
	}
}

func TestCarryForward(t *testing.T) {
	w := NewWindow(100, 10, 24*time.Hour)

	if _, err := w.AppendBar(bar(1000, 100, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	r := models.LiquidationReading{Timestamp: 900, Instrument: "BTC-USD", LongValue: 5000, ShortValue: 1000}
	if err := w.AppendReading(r); err != nil {
		t.Fatalf("append reading: %v", err)
	}

	if _, err := w.AppendBar(bar(1300, 100, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries := w.Bars("BTC-USD")
	if entries[0].LongLiq != 0 || entries[0].LiqTS != 0 {
		t.Fatalf("bar before reading must carry zero values, got %+v", entries[0])
	}
	if entries[1].LongLiq != 5000 || entries[1].ShortLiq != 1000 || entries[1].TotalLiq != 6000 {
		t.Fatalf("carry-forward values wrong: %+v", entries[1])
	}
	if entries[1].LiqTS != 900 {
		t.Fatalf("expected source ts 900, got %d", entries[1].LiqTS)
	}

	// stamped values never change retroactively
	r2 := models.LiquidationReading{Timestamp: 4500, Instrument: "BTC-USD", LongValue: 9000}
	if err := w.AppendReading(r2); err != nil {
		t.Fatalf("append reading: %v", err)
	}
	if entries := w.Bars("BTC-USD"); entries[1].LongLiq != 5000 {
		t.Fatalf("stamped value mutated to %v", entries[1].LongLiq)
	}
}

func TestReadingOrdering(t *testing.T) {
	w := NewWindow(100, 10, 24*time.Hour)
	if err := w.AppendReading(models.LiquidationReading{Timestamp: 3600, Instrument: "BTC-USD", LongValue: 1}); err != nil {
		t.Fatalf("append reading: %v", err)
	}
	// same hour re-poll updates the value in place
	if err := w.AppendReading(models.LiquidationReading{Timestamp: 3600, Instrument: "BTC-USD", LongValue: 2}); err != nil {
		t.Fatalf("update reading: %v", err)
	}
	if w.ReadingCount("BTC-USD") != 1 {
		t.Fatalf("expected 1 reading, got %d", w.ReadingCount("BTC-USD"))
	}
	err := w.AppendReading(models.LiquidationReading{Timestamp: 1800, Instrument: "BTC-USD", LongValue: 3})
	if !errors.Is(err, models.ErrOutOfOrderEvent) {
		t.Fatalf("expected ErrOutOfOrderEvent, got %v", err)
	}
}

func TestPercentileRankInclusive(t *testing.T) {
	pop := []float64{1, 2, 3, 4}
	if got := PercentileRank(4, pop); got != 1.0 {
		t.Fatalf("max of window must rank 1.0, got %v", got)
	}
	if got := PercentileRank(3, pop); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	if got := PercentileRank(0.5, pop); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := PercentileRank(1, nil); got != 0 {
		t.Fatalf("empty population must rank 0, got %v", got)
	}
}

func TestPercentileRankAllEqual(t *testing.T) {
	pop := []float64{7, 7, 7}
	if got := PercentileRank(7, pop); got != 1.0 {
		t.Fatalf("all-equal population must rank 1.0, got %v", got)
	}
}
