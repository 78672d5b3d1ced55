// Package metrics exposes prometheus instruments for the session process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Collector owns a private registry so tests and multiple sessions never
// collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	gatewayErrors   *prometheus.CounterVec

	videoPolls *prometheus.CounterVec
	videoJobs  *prometheus.CounterVec
	videoWait  prometheus.Histogram

	pipelineRuns  *prometheus.CounterVec
	pipelineSteps *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector registers every instrument under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Remote generation calls by capability and outcome",
		}, []string{"capability", "model", "outcome"}),
		gatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Remote generation call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"capability"}),
		gatewayErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_errors_total",
			Help:      "Normalized gateway failures by kind and status",
		}, []string{"capability", "kind", "status"}),
		videoPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_polls_total",
			Help:      "Video operation status polls",
		}, []string{"kind"}),
		videoJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_jobs_total",
			Help:      "Video jobs reaching a terminal status",
		}, []string{"kind", "status"}),
		videoWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_job_duration_seconds",
			Help:      "Time from submission to terminal status",
			Buckets:   []float64{10, 30, 60, 120, 240, 480, 900, 1200},
		}),
		pipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by name and outcome",
		}, []string{"pipeline", "outcome"}),
		pipelineSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_steps_total",
			Help:      "Pipeline step outcomes",
		}, []string{"pipeline", "step", "status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Session bridge requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Session bridge request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the private registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveGatewayCall records one remote call. kind and status are empty on
// success.
func (c *Collector) ObserveGatewayCall(capability, model string, d time.Duration, kind string, status int) {
	if c == nil {
		return
	}
	outcome := OutcomeOK
	if kind != "" {
		outcome = OutcomeFailed
		c.gatewayErrors.WithLabelValues(capability, kind, strconv.Itoa(status)).Inc()
	}
	c.gatewayCalls.WithLabelValues(capability, model, outcome).Inc()
	c.gatewayDuration.WithLabelValues(capability).Observe(d.Seconds())
}

func (c *Collector) ObserveVideoPoll(kind string) {
	if c == nil {
		return
	}
	c.videoPolls.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveVideoJob(kind, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.videoJobs.WithLabelValues(kind, status).Inc()
	c.videoWait.Observe(d.Seconds())
}

func (c *Collector) ObservePipelineStep(pipeline, step, status string) {
	if c == nil {
		return
	}
	c.pipelineSteps.WithLabelValues(pipeline, step, status).Inc()
}

func (c *Collector) ObservePipelineRun(pipeline string, failed bool) {
	if c == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeFailed
	}
	c.pipelineRuns.WithLabelValues(pipeline, outcome).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
