package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kie.ai gateway metrics
	KieRequestsTotal   *prometheus.CounterVec
	KieRequestDuration *prometheus.HistogramVec
	KiePollAttempts    *prometheus.CounterVec
	KieUploadBytes     *prometheus.CounterVec

	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RunsInFlight prometheus.Gauge

	// Prompt generator metrics
	PromptRequestsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered on reg.
// A nil reg registers on the default prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "videogen"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		KieRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kieai",
				Name:      "requests_total",
				Help:      "Total number of Kie.ai gateway calls",
			},
			[]string{"operation", "status"}, // status: ok, rejected, unavailable
		),
		KieRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "kieai",
				Name:      "request_duration_seconds",
				Help:      "Kie.ai gateway call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		KiePollAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kieai",
				Name:      "poll_attempts_total",
				Help:      "Total number of task status queries issued by pollers",
			},
			[]string{"variant"},
		),
		KieUploadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kieai",
				Name:      "upload_bytes_total",
				Help:      "Total bytes of staged assets",
			},
			[]string{"path"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "runs_total",
				Help:      "Total number of finished generation runs",
			},
			[]string{"variant", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "run_duration_seconds",
				Help:      "Generation run duration in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
			},
			[]string{"variant"},
		),
		RunsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "runs_in_flight",
				Help:      "Current number of runs between validation and a terminal state",
			},
		),

		PromptRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "prompt",
				Name:      "requests_total",
				Help:      "Total number of Gemini prompt generator calls",
			},
			[]string{"operation", "status"},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordKieRequest records one gateway call.
func (m *Metrics) RecordKieRequest(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.KieRequestsTotal.WithLabelValues(operation, status).Inc()
	m.KieRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPollAttempt records one status query made by a poller.
func (m *Metrics) RecordPollAttempt(variant string) {
	if m == nil {
		return
	}
	m.KiePollAttempts.WithLabelValues(variant).Inc()
}

// RecordUpload records staged bytes for an upload path.
func (m *Metrics) RecordUpload(path string, size int) {
	if m == nil {
		return
	}
	m.KieUploadBytes.WithLabelValues(path).Add(float64(size))
}

// RunStarted marks a run as in flight.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsInFlight.Inc()
}

// RunFinished records the outcome of a run and clears it from in-flight.
func (m *Metrics) RunFinished(variant, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsInFlight.Dec()
	m.RunsTotal.WithLabelValues(variant, outcome).Inc()
	m.RunDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordPromptRequest records a prompt generator call.
func (m *Metrics) RecordPromptRequest(operation, status string) {
	if m == nil {
		return
	}
	m.PromptRequestsTotal.WithLabelValues(operation, status).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
