package melissa

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by the dispatcher.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "melissa",
				Name:      "requests_total",
				Help:      "Total number of Melissa API requests by service, method and status",
			},
			[]string{"service", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "melissa",
				Name:      "request_duration_seconds",
				Help:      "Melissa API request latency",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~160s
			},
			[]string{"service", "method"},
		),
	}
}

// RecordRequest records a finished request. A statusCode of 0 means no
// response was received.
func (m *Metrics) RecordRequest(service ServiceName, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := "transport_error"
	if statusCode != 0 {
		status = strconv.Itoa(statusCode)
	}
	m.RequestsTotal.WithLabelValues(string(service), method, status).Inc()
	m.RequestDuration.WithLabelValues(string(service), method).Observe(duration.Seconds())
}
