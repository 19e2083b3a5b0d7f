package usecase

import (
	"testing"

	"LiqPulse/internal/domain/models"
)

const (
	momInst = "ETH-USD"
	barSecs = int64(300)
)

func snap(sign int, volume, long, short, total float64) models.FeatureSnapshot {
	return models.FeatureSnapshot{
		MomentumSign: map[string]int{momInst: sign},
		VolumePct:    volume,
		LongLiqPct:   long,
		ShortLiqPct:  short,
		TotalLiqPct:  total,
	}
}

func freshStates() map[string]*models.SignalState {
	states := make(map[string]*models.SignalState)
	for _, id := range SignalIDs(DefaultRules()) {
		states[id] = &models.SignalState{SignalID: id}
	}
	return states
}

func fireIDs(fires []models.Fire) map[string]models.Direction {
	out := make(map[string]models.Direction, len(fires))
	for _, f := range fires {
		out[f.SignalID] = f.Direction
	}
	return out
}

func TestOnsetRulesRequireFreshReading(t *testing.T) {
	c := Condition{Cur: snap(0, 0, 0.95, 0.95, 0.95), MomentumInstrument: momInst}

	fires := Evaluate(DefaultRules(), c, 1000, barSecs, freshStates())
	if len(fires) != 0 {
		t.Fatalf("expected no fires without onset, got %v", fires)
	}

	c.Onset = true
	got := fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if got["SIG-A"] != models.Short {
		t.Fatalf("expected SIG-A SHORT, got %v", got)
	}
	if got["SIG-B"] != models.Long {
		t.Fatalf("expected SIG-B LONG, got %v", got)
	}
}

func TestFlipWithElevatedLongLiq(t *testing.T) {
	cur := snap(-1, 0, 0.75, 0, 0)
	prev := snap(1, 0, 0, 0, 0)
	c := Condition{Cur: cur, Prev: prev, MomentumInstrument: momInst}

	got := fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if got["SIG-C"] != models.Short {
		t.Fatalf("expected SIG-C SHORT at 0.75, got %v", got)
	}

	c.Cur = snap(-1, 0, 0.65, 0, 0)
	got = fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if _, ok := got["SIG-C"]; ok {
		t.Fatalf("SIG-C fired at 0.65")
	}
}

func TestFlipVolumeCombo(t *testing.T) {
	prev := snap(-1, 0, 0, 0, 0)

	c := Condition{Cur: snap(1, 0.85, 0, 0, 0.72), Prev: prev, MomentumInstrument: momInst}
	got := fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if got["SIG-D"] != models.Long {
		t.Fatalf("expected SIG-D LONG at vol 0.85 total 0.72, got %v", got)
	}

	// follows the flip's direction
	c = Condition{Cur: snap(-1, 0.85, 0, 0, 0.72), Prev: snap(1, 0, 0, 0, 0), MomentumInstrument: momInst}
	got = fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if got["SIG-D"] != models.Short {
		t.Fatalf("expected SIG-D SHORT on bearish flip, got %v", got)
	}

	c = Condition{Cur: snap(1, 0.79, 0, 0, 0.72), Prev: prev, MomentumInstrument: momInst}
	got = fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if _, ok := got["SIG-D"]; ok {
		t.Fatalf("SIG-D fired below volume threshold")
	}
}

func TestNoFlipOnConstantSign(t *testing.T) {
	c := Condition{
		Cur:                snap(-1, 1, 1, 1, 1),
		Prev:               snap(-1, 1, 1, 1, 1),
		MomentumInstrument: momInst,
	}
	if c.Flip() != 0 {
		t.Fatalf("constant sign must not read as flip")
	}
	got := fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if _, ok := got["SIG-C"]; ok {
		t.Fatalf("SIG-C fired without a flip")
	}
	if _, ok := got["SIG-D"]; ok {
		t.Fatalf("SIG-D fired without a flip")
	}
}

func TestFlipFromZeroCounts(t *testing.T) {
	// first non-zero sign after warmup is a flip in that direction
	c := Condition{
		Cur:                snap(-1, 0, 0.75, 0, 0),
		Prev:               snap(0, 0, 0, 0, 0),
		MomentumInstrument: momInst,
	}
	if c.Flip() != -1 {
		t.Fatalf("transition out of zero sign must count as flip, got %d", c.Flip())
	}
	got := fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if got["SIG-C"] != models.Short {
		t.Fatalf("expected SIG-C SHORT on first bearish sign, got %v", got)
	}
}

func TestFlipToZeroIsNotAFlip(t *testing.T) {
	c := Condition{
		Cur:                snap(0, 1, 1, 1, 1),
		Prev:               snap(1, 0, 0, 0, 0),
		MomentumInstrument: momInst,
	}
	if c.Flip() != 0 {
		t.Fatalf("transition into zero sign must not read as flip")
	}
}

func TestCooldownSuppression(t *testing.T) {
	c := Condition{Cur: snap(0, 0, 0.95, 0, 0), Onset: true, MomentumInstrument: momInst}
	states := freshStates()

	last := int64(1000)
	states["SIG-A"].LastFireTS = &last

	// 3 bars later: inside the 8-bar cooldown
	got := fireIDs(Evaluate(DefaultRules(), c, last+3*barSecs, barSecs, states))
	if _, ok := got["SIG-A"]; ok {
		t.Fatalf("SIG-A fired inside cooldown")
	}

	// exactly 8 bars later: cooldown over
	got = fireIDs(Evaluate(DefaultRules(), c, last+8*barSecs, barSecs, states))
	if got["SIG-A"] != models.Short {
		t.Fatalf("expected SIG-A after cooldown, got %v", got)
	}
}

func TestRulesEvaluateIndependently(t *testing.T) {
	// everything extreme plus a bullish flip: A, B and D all fire
	c := Condition{
		Cur:                snap(1, 0.95, 0.95, 0.95, 0.95),
		Prev:               snap(-1, 0, 0, 0, 0),
		Onset:              true,
		MomentumInstrument: momInst,
	}
	got := fireIDs(Evaluate(DefaultRules(), c, 1000, barSecs, freshStates()))
	if len(got) != 3 {
		t.Fatalf("expected SIG-A, SIG-B and SIG-D, got %v", got)
	}
}
