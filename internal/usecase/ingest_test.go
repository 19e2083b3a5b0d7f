package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiqPulse/internal/domain/models"
	drepo "LiqPulse/internal/domain/repository"
)

// flakyStream fails a fixed number of reconnect attempts, then comes back
// with fresh channels carrying one bar.
type flakyStream struct {
	mu         sync.Mutex
	failures   int
	reconnects int
	recovered  models.Bar

	barCh chan models.Bar
	errCh chan error
}

var _ drepo.BarStream = (*flakyStream)(nil)

func (s *flakyStream) Connect(context.Context) error   { return nil }
func (s *flakyStream) Subscribe(context.Context) error { return nil }
func (s *flakyStream) Close() error                    { return nil }
func (s *flakyStream) IsConnected() bool               { return true }

func (s *flakyStream) Backfill(context.Context, string, int64, int64) ([]models.Bar, error) {
	return nil, nil
}

func (s *flakyStream) Read(context.Context) (<-chan models.Bar, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.barCh, s.errCh
}

func (s *flakyStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	if s.reconnects <= s.failures {
		return errors.New("dial: connection refused")
	}
	s.barCh = make(chan models.Bar, 4)
	s.errCh = make(chan error, 1)
	s.barCh <- s.recovered
	return nil
}

func (s *flakyStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// A dead stream (error delivered, both channels closed) must be retried until
// reconnect succeeds, not spun on.
func TestCollectorRecoversAfterStreamDeath(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	stream := &flakyStream{failures: 2, recovered: primaryBar(1000, 100, 1)}

	barCh := make(chan models.Bar)
	errCh := make(chan error, 1)
	errCh <- errors.New("read: connection reset by peer")
	close(errCh)
	close(barCh)

	c := NewBarCollector(stream, e, nopMetrics{}, newTestLogger(t), []string{"BTC-USD"}, time.Hour)
	c.reconnectWait = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.consume(ctx, barCh, errCh)

	select {
	case in := <-e.in:
		nb, ok := in.(models.NewBar)
		require.True(t, ok, "expected a NewBar after recovery")
		assert.Equal(t, stream.recovered, nb.Bar)
	case <-time.After(5 * time.Second):
		t.Fatal("collector never recovered the stream")
	}
	assert.Equal(t, 3, stream.reconnectCount(), "two failed attempts plus the successful one")
}

func TestCollectorStopsOnCancelWhileReconnecting(t *testing.T) {
	e := newTestEngine(t, "BTC-USD")
	stream := &flakyStream{failures: 1 << 30} // never recovers

	barCh := make(chan models.Bar)
	errCh := make(chan error)
	close(errCh)
	close(barCh)

	c := NewBarCollector(stream, e, nopMetrics{}, newTestLogger(t), []string{"BTC-USD"}, time.Hour)
	c.reconnectWait = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.consume(ctx, barCh, errCh)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not return on cancellation")
	}
}
