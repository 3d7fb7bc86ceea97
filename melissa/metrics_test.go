package melissa

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordRequest(ServiceIPLocator, http.MethodGet, 200, 15*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"melissa_requests_total", "melissa_request_duration_seconds"}, names)
}

func TestMetricsTransportErrorLabel(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordRequest(ServiceExpressEntry, http.MethodPost, 0, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("expressentry", "POST", "transport_error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest(ServiceIPLocator, http.MethodGet, 200, time.Second)
	})
}
