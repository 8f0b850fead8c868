package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	analyses        *prometheus.CounterVec
	analysisErrors  *prometheus.CounterVec
	channelOutcomes *prometheus.CounterVec
	detectLatency   prometheus.Histogram
	lastHeadCount   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headwatch_analyses_total",
			Help: "Completed analyses by alert decision",
		}, []string{"decision"}),
		analysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headwatch_analysis_errors_total",
			Help: "Failed analyses by error kind",
		}, []string{"kind"}),
		channelOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headwatch_channel_outcomes_total",
			Help: "Alert channel outcomes by channel and status",
		}, []string{"channel", "status"}),
		detectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "headwatch_detect_duration_seconds",
			Help:    "Time spent in model inference",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		lastHeadCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "headwatch_last_head_count",
			Help: "Head count of the most recent analysis",
		}),
	}

	m.registry.MustRegister(
		m.analyses,
		m.analysisErrors,
		m.channelOutcomes,
		m.detectLatency,
		m.lastHeadCount,
	)
	return m
}

func (m *Metrics) ObserveAnalysis(decision string, headCount int) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(decision).Inc()
	m.lastHeadCount.Set(float64(headCount))
}

func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.analysisErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveChannel(channel, status string) {
	if m == nil {
		return
	}
	m.channelOutcomes.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) ObserveDetect(d time.Duration) {
	if m == nil {
		return
	}
	m.detectLatency.Observe(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
