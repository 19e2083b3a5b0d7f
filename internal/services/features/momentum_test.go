package features

import "testing"

const hour = int64(3600)

func TestMomentumWarmup(t *testing.T) {
	m := NewMomentum(20, 3, hour, 720)
	// three completed buckets is one short of diffLag+1
	for i := 0; i < 4; i++ {
		if sign := m.Observe(int64(i)*hour, 100+float64(i)); sign != 0 && i < 3 {
			t.Fatalf("sign before warmup at hour %d: %d", i, sign)
		}
	}
	if m.Sign() != 0 {
		t.Fatalf("expected 0 with 3 completed hours, got %d", m.Sign())
	}
}

func TestMomentumRisingSeries(t *testing.T) {
	m := NewMomentum(20, 3, hour, 720)
	for i := 0; i < 6; i++ {
		m.Observe(int64(i)*hour, 100+float64(i))
	}
	if m.Sign() != 1 {
		t.Fatalf("expected +1 on rising closes, got %d", m.Sign())
	}
}

func TestMomentumHeldWithinHour(t *testing.T) {
	m := NewMomentum(20, 3, hour, 720)
	for i := 0; i < 6; i++ {
		m.Observe(int64(i)*hour, 100+float64(i))
	}
	if m.Sign() != 1 {
		t.Fatalf("setup: expected +1, got %d", m.Sign())
	}

	// a crash inside the current hour must not move the sign
	if sign := m.Observe(5*hour+300, 10); sign != 1 {
		t.Fatalf("sign moved within hour: %d", sign)
	}
	if sign := m.Observe(5*hour+600, 5); sign != 1 {
		t.Fatalf("sign moved within hour: %d", sign)
	}
}

func TestMomentumFlipOnHourBoundary(t *testing.T) {
	m := NewMomentum(20, 3, hour, 720)
	ts := int64(0)
	for i := 0; i < 8; i++ {
		m.Observe(ts, 100+float64(i))
		ts += hour
	}
	if m.Sign() != 1 {
		t.Fatalf("setup: expected +1, got %d", m.Sign())
	}

	// steep decline; the flip can only land on a bucket boundary
	price := 100.0
	flipped := false
	for i := 0; i < 10; i++ {
		price -= 20
		if price < 1 {
			price = 1
		}
		sign := m.Observe(ts, price)
		ts += hour
		if sign == -1 {
			flipped = true
			break
		}
	}
	if !flipped {
		t.Fatalf("expected sign to flip to -1 on declining closes")
	}
}
