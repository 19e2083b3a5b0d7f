package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ingestTotal  *prometheus.CounterVec
	rejectsTotal *prometheus.CounterVec
	signalsTotal *prometheus.CounterVec
	tradesTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ingestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liqpulse_ingest_total",
				Help: "Total inbound events accepted by the engine",
			},
			[]string{"kind", "instrument"},
		),
		rejectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liqpulse_rejects_total",
				Help: "Total inbound events rejected or outbound events dropped",
			},
			[]string{"reason"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liqpulse_signal_fires_total",
				Help: "Total signal fires",
			},
			[]string{"signal", "direction"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liqpulse_trades_total",
				Help: "Total trade transitions by status",
			},
			[]string{"signal", "status"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "liqpulse_last_price",
				Help: "Last observed close for an instrument",
			},
			[]string{"instrument"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "liqpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordIngest records an accepted inbound event.
func (r *Recorder) RecordIngest(kind, instrument string) {
	r.ingestTotal.WithLabelValues(kind, instrument).Inc()
}

// RecordReject records a rejected or dropped event.
func (r *Recorder) RecordReject(reason string) {
	r.rejectsTotal.WithLabelValues(reason).Inc()
}

// RecordSignal records a signal fire.
func (r *Recorder) RecordSignal(signalID, direction string) {
	r.signalsTotal.WithLabelValues(signalID, direction).Inc()
}

// RecordTrade records a trade status transition.
func (r *Recorder) RecordTrade(signalID, status string) {
	r.tradesTotal.WithLabelValues(signalID, status).Inc()
}

// RecordLastPrice records the last close for an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
