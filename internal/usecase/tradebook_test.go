package usecase

import (
	"errors"
	"math"
	"testing"
	"time"

	"LiqPulse/internal/domain/models"
)

func newBook() *TradeBook {
	return NewTradeBook([]string{"SIG-A", "SIG-B", "SIG-C", "SIG-D"}, 5*time.Minute)
}

func TestOpenTradeStampsGate(t *testing.T) {
	b := newBook()
	tr, err := b.OpenTrade("SIG-A", models.Short, 8, 100, 1000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if tr.Status != models.TradeOpen || tr.ExitTS != nil || tr.GrossBps != nil {
		t.Fatalf("fresh trade must be OPEN with nil exit fields: %+v", tr)
	}

	st := b.States()["SIG-A"]
	if st.LastFireTS == nil || *st.LastFireTS != 1000 {
		t.Fatalf("gate last fire not stamped: %+v", st)
	}
	if st.LastFireDirection != models.Short {
		t.Fatalf("gate direction not stamped: %+v", st)
	}
	if st.OpenTradeID == nil || *st.OpenTradeID != tr.ID {
		t.Fatalf("gate open trade not stamped: %+v", st)
	}
}

func TestOpenTradeConflict(t *testing.T) {
	b := newBook()
	if _, err := b.OpenTrade("SIG-A", models.Short, 8, 100, 1000); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := b.OpenTrade("SIG-A", models.Long, 8, 101, 1300)
	if !errors.Is(err, models.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if b.OpenCount() != 1 {
		t.Fatalf("conflicting open mutated the book")
	}
}

func TestCloseComputesSignedBps(t *testing.T) {
	b := newBook()

	long, _ := b.OpenTrade("SIG-B", models.Long, 8, 100, 1000)
	if err := b.CloseTrade(long, 100.5, 1000+8*300); err != nil {
		t.Fatalf("close long: %v", err)
	}
	if math.Abs(*long.GrossBps-50) > 1e-9 {
		t.Fatalf("long +0.5%% must be +50 bps, got %v", *long.GrossBps)
	}

	short, _ := b.OpenTrade("SIG-A", models.Short, 8, 100, 1000)
	if err := b.CloseTrade(short, 99.5, 1000+8*300); err != nil {
		t.Fatalf("close short: %v", err)
	}
	if math.Abs(*short.GrossBps-50) > 1e-9 {
		t.Fatalf("short -0.5%% must be +50 bps, got %v", *short.GrossBps)
	}

	// gate reopens, fire history survives
	st := b.States()["SIG-A"]
	if st.OpenTradeID != nil {
		t.Fatalf("open trade reference not cleared")
	}
	if st.LastFireTS == nil {
		t.Fatalf("last fire must survive close")
	}
}

func TestCloseRejectsInvalidPrice(t *testing.T) {
	b := newBook()
	tr, _ := b.OpenTrade("SIG-A", models.Short, 8, 100, 1000)

	for _, bad := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if err := b.CloseTrade(tr, bad, 4000); !errors.Is(err, models.ErrInvalidPrice) {
			t.Fatalf("price %v: expected ErrInvalidPrice, got %v", bad, err)
		}
		if tr.Status != models.TradeOpen {
			t.Fatalf("failed close mutated status")
		}
	}
}

func TestSweepClosesExpiredOnly(t *testing.T) {
	b := newBook()
	b.OpenTrade("SIG-A", models.Short, 8, 100, 0)
	b.OpenTrade("SIG-D", models.Long, 12, 100, 0)

	closed := b.Sweep(8*300-1, 101)
	if len(closed) != 0 {
		t.Fatalf("closed before hold elapsed: %v", closed)
	}

	closed = b.Sweep(8*300, 101)
	if len(closed) != 1 || closed[0].SignalID != "SIG-A" {
		t.Fatalf("expected only SIG-A closed at 8 bars, got %v", closed)
	}

	closed = b.Sweep(12*300, 101)
	if len(closed) != 1 || closed[0].SignalID != "SIG-D" {
		t.Fatalf("expected SIG-D closed at 12 bars, got %v", closed)
	}
}

func TestSweepRetriesAfterInvalidPrice(t *testing.T) {
	b := newBook()
	b.OpenTrade("SIG-A", models.Short, 8, 100, 0)

	if closed := b.Sweep(8*300, 0); len(closed) != 0 {
		t.Fatalf("closed with invalid price")
	}
	if b.OpenCount() != 1 {
		t.Fatalf("trade lost after failed close")
	}

	closed := b.Sweep(9*300, 99)
	if len(closed) != 1 {
		t.Fatalf("expected close on retry, got %v", closed)
	}
}

func TestTradesFilterNewestFirst(t *testing.T) {
	b := newBook()
	b.OpenTrade("SIG-A", models.Short, 8, 100, 0)
	b.OpenTrade("SIG-B", models.Long, 8, 100, 300)
	b.Sweep(9*300, 101)

	all := b.Trades("all", 0)
	if len(all) != 2 || all[0].SignalID != "SIG-B" {
		t.Fatalf("expected newest first, got %v", all)
	}
	if n := len(b.Trades("closed", 0)); n != 2 {
		t.Fatalf("expected 2 closed, got %d", n)
	}
	if n := len(b.Trades("open", 0)); n != 0 {
		t.Fatalf("expected 0 open, got %d", n)
	}
	if n := len(b.Trades("all", 1)); n != 1 {
		t.Fatalf("limit not applied")
	}
}
