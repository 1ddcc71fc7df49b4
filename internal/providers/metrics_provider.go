package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"geoalert/internal/structures"
)

// Sample outcomes reported by IncSamples.
const (
	SampleEvaluated = "evaluated"
	SampleThrottled = "throttled"
	SampleStale     = "stale"
	SampleInvalid   = "invalid"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncSamples(outcome string)
	IncTransitions(kind string)
	IncScheduleFires(scheduleType string)
	IncIssues(kind string)
	IncSinkFailures()
	SetSimulationsRunning(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	samples             *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	scheduleFires       *prometheus.CounterVec
	issues              *prometheus.CounterVec
	sinkFailures        prometheus.Counter
	simulations         prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncSamples(outcome string) {
	m.samples.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) IncTransitions(kind string) {
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) IncScheduleFires(scheduleType string) {
	m.scheduleFires.WithLabelValues(scheduleType).Inc()
}

func (m *MetricsProvider) IncIssues(kind string) {
	m.issues.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) IncSinkFailures() {
	m.sinkFailures.Inc()
}

func (m *MetricsProvider) SetSimulationsRunning(count int) {
	m.simulations.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalert_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoalert_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoalert_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoalert_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoalert_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		samples: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalert_samples_total",
			Help: "Location samples by outcome",
		}, []string{"outcome"}),

		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalert_transitions_total",
			Help: "Geofence transitions by kind",
		}, []string{"kind"}),

		scheduleFires: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalert_schedule_fires_total",
			Help: "Scheduled alert fires by schedule type",
		}, []string{"type"}),

		issues: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalert_config_issues_total",
			Help: "Configuration problems found during evaluation",
		}, []string{"kind"}),

		sinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoalert_sink_failures_total",
			Help: "Alerts a sink failed to accept",
		}),

		simulations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "geoalert_simulations_running",
			Help: "Number of running simulations",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncSamples(_ string)                              {}
func (n *noopMetrics) IncTransitions(_ string)                          {}
func (n *noopMetrics) IncScheduleFires(_ string)                        {}
func (n *noopMetrics) IncIssues(_ string)                               {}
func (n *noopMetrics) IncSinkFailures()                                 {}
func (n *noopMetrics) SetSimulationsRunning(_ int)                      {}
