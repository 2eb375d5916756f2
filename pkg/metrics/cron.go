package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// CronJobMetrics is safe to use as a nil pointer or when built without a
// registerer; every method then does nothing.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	affected *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	labels := []string{"job"}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of each cron job run.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		}, labels),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "result"}),
		affected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_rows_affected_total",
			Help:      "Rows deleted or updated by cron jobs.",
		}, labels),
	}
	reg.MustRegister(m.duration, m.runs, m.affected)
	return m
}

func (c *CronJobMetrics) enabled() bool {
	return c != nil && c.runs != nil
}

func (c *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if c.enabled() {
		c.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
	}
}

func (c *CronJobMetrics) IncSuccess(job string) { c.count(job, "success") }

func (c *CronJobMetrics) IncFailure(job string) { c.count(job, "failure") }

func (c *CronJobMetrics) count(job, result string) {
	if c.enabled() {
		c.runs.WithLabelValues(normalizeLabel(job), result).Inc()
	}
}

// AddAffected ignores non-positive counts.
func (c *CronJobMetrics) AddAffected(job string, rows int64) {
	if c.enabled() && rows > 0 {
		c.affected.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
