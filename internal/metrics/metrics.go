package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for finished jobs
const (
	OutcomeCompleted       = "completed"
	OutcomeTransformFailed = "transform_failed"
	OutcomeMissingArtifact = "missing_artifact"
	OutcomeRejected        = "rejected"
)

// Metrics captures job and retention counters.
type Metrics interface {
	IncJobsStarted(kind string)
	IncJobsFinished(kind, outcome string)
	ObserveTransformDuration(kind string, durationSeconds float64)
	SetQueueDepth(depth int)
	IncArtifactsRemoved(reason string)
	IncSweepErrors()
	ObserveSweepDuration(durationSeconds float64)
}

// GatewayMetrics captures request metrics for the HTTP gateway.
type GatewayMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements Metrics and GatewayMetrics without emitting anything.
type Noop struct{}

func (Noop) IncJobsStarted(string)                          {}
func (Noop) IncJobsFinished(string, string)                 {}
func (Noop) ObserveTransformDuration(string, float64)       {}
func (Noop) SetQueueDepth(int)                              {}
func (Noop) IncArtifactsRemoved(string)                     {}
func (Noop) IncSweepErrors()                                {}
func (Noop) ObserveSweepDuration(float64)                   {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements Metrics and GatewayMetrics with Prometheus collectors.
type Prom struct {
	jobsStarted       *prometheus.CounterVec
	jobsFinished      *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
	queueDepth        prometheus.Gauge
	artifactsRemoved  *prometheus.CounterVec
	sweepErrors       prometheus.Counter
	sweepDuration     prometheus.Histogram
	requests          *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
}

// NewProm builds the collectors and registers them with reg.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Download jobs handed to the transform by kind",
		}, []string{"kind"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Download jobs finished by kind and outcome",
		}, []string{"kind", "outcome"}),
		transformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Wall time of external transform runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transform_queue_depth",
			Help:      "Jobs waiting for a transform slot",
		}),
		artifactsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_removed_total",
			Help:      "Artifacts removed by reason",
		}, []string{"reason"}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Retention sweep deletions that failed",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of retention sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		p.jobsStarted,
		p.jobsFinished,
		p.transformDuration,
		p.queueDepth,
		p.artifactsRemoved,
		p.sweepErrors,
		p.sweepDuration,
		p.requests,
		p.requestLatency,
	)
	return p
}

func (p *Prom) IncJobsStarted(kind string) {
	p.jobsStarted.WithLabelValues(kind).Inc()
}

func (p *Prom) IncJobsFinished(kind, outcome string) {
	p.jobsFinished.WithLabelValues(kind, outcome).Inc()
}

func (p *Prom) ObserveTransformDuration(kind string, durationSeconds float64) {
	p.transformDuration.WithLabelValues(kind).Observe(durationSeconds)
}

func (p *Prom) SetQueueDepth(depth int) {
	p.queueDepth.Set(float64(depth))
}

func (p *Prom) IncArtifactsRemoved(reason string) {
	p.artifactsRemoved.WithLabelValues(reason).Inc()
}

func (p *Prom) IncSweepErrors() {
	p.sweepErrors.Inc()
}

func (p *Prom) ObserveSweepDuration(durationSeconds float64) {
	p.sweepDuration.Observe(durationSeconds)
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.requests.WithLabelValues(method, route, status).Inc()
	p.requestLatency.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler returns an HTTP handler exposing the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
