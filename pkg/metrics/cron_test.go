package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("outbox-retention", 250*time.Millisecond)
	m.IncSuccess("outbox-retention")
	m.IncSuccess("outbox-retention")
	m.IncFailure("outbox-retention")
	m.AddAffected("outbox-retention", 12)
	m.AddAffected("outbox-retention", 0)
	m.AddAffected("outbox-retention", -3)
	m.IncSuccess("")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("outbox-retention", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("outbox-retention", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.affected.WithLabelValues("outbox-retention")))

	count, err := testutil.GatherAndCount(reg, "storefront_cron_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	var nilCron *CronJobMetrics
	for _, m := range []*CronJobMetrics{nilCron, NewCronJobMetrics(nil)} {
		m.IncSuccess("job")
		m.IncFailure("job")
		m.ObserveDuration("job", time.Second)
		m.AddAffected("job", 4)
	}
	NewHTTPMetrics(nil).Start()("GET", "/x", 200)
}

func TestHTTPMetricsRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	done := m.Start()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done("GET", "/api/v1/products/{id}", 200)
	m.Start()("GET", "", 404)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/products/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")))

	count, err := testutil.GatherAndCount(reg, "storefront_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
