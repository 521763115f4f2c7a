package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records Gateway call counts and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the Gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escola",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "API calls issued by the frontend, by entity, operation and outcome.",
		}, []string{"entity", "operation", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "escola",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
	}
}

func (m *Metrics) observe(entity, op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(entity, op, outcome(err)).Inc()
	m.duration.WithLabelValues(entity, op).Observe(elapsed.Seconds())
}
