package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for check-in traffic and background jobs.
type Metrics struct {
	// Check-in attempts by path ("token", "manual", "checkout") and outcome
	CheckInOutcome *prometheus.CounterVec

	// Latency of the state transition including the registry lookup
	TransitionLatency *prometheus.HistogramVec

	// Background jobs by type and result ("ok", "retry", "dlq")
	JobsProcessed *prometheus.CounterVec

	// QR image cache lookups ("hit", "miss")
	QRCache *prometheus.CounterVec

	// Circuit breaker position by name: 0 closed, 1 open, 2 half-open
	BreakerState *prometheus.GaugeVec
}

// New registers every metric against reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckInOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confcheckin_checkin_outcomes_total",
			Help: "Check-in and check-out attempts by path and outcome",
		}, []string{"path", "outcome"}),

		TransitionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confcheckin_transition_duration_seconds",
			Help:    "Duration of check-in state transitions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"path"}),

		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confcheckin_jobs_processed_total",
			Help: "Background jobs processed by type and result",
		}, []string{"type", "result"}),

		QRCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confcheckin_qr_cache_total",
			Help: "QR image cache lookups by result",
		}, []string{"result"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "confcheckin_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),
	}
}

func (m *Metrics) IncrementOutcome(path, outcome string) {
	if m != nil {
		m.CheckInOutcome.WithLabelValues(path, outcome).Inc()
	}
}

func (m *Metrics) ObserveTransition(path string, d time.Duration) {
	if m != nil {
		m.TransitionLatency.WithLabelValues(path).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementJob(jobType, result string) {
	if m != nil {
		m.JobsProcessed.WithLabelValues(jobType, result).Inc()
	}
}

func (m *Metrics) IncrementQRCache(result string) {
	if m != nil {
		m.QRCache.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m != nil {
		m.BreakerState.WithLabelValues(name).Set(float64(state))
	}
}
