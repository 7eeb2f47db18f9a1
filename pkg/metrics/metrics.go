// Package metrics exposes Prometheus counters for the execution runner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures runner-level events.
type Metrics interface {
	IncExecutionsStarted(workflowID string)
	IncExecutionsFinished(status string)
	IncResumes(source string)
	IncNodeDispatched(actionID, outcome string)
	ObserveNodeDuration(actionID string, durationSeconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncExecutionsStarted(string)         {}
func (Noop) IncExecutionsFinished(string)        {}
func (Noop) IncResumes(string)                   {}
func (Noop) IncNodeDispatched(string, string)    {}
func (Noop) ObserveNodeDuration(string, float64) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	executionsStarted  *prometheus.CounterVec
	executionsFinished *prometheus.CounterVec
	resumes            *prometheus.CounterVec
	nodesDispatched    *prometheus.CounterVec
	nodeDuration       *prometheus.HistogramVec
}

// NewProm registers the collectors on reg, or on the default registerer when reg is nil.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prom{
		executionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_started_total",
			Help:      "Executions started by workflow",
		}, []string{"workflow"}),
		executionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_settled_total",
			Help:      "Executions that stopped advancing, by resulting status",
		}, []string{"status"}),
		resumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resumes_total",
			Help:      "Resume calls applied, by source",
		}, []string{"source"}),
		nodesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_dispatches_total",
			Help:      "Node dispatches by action and outcome",
		}, []string{"action", "outcome"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_dispatch_duration_seconds",
			Help:      "Node dispatch latency by action",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}

	reg.MustRegister(p.executionsStarted, p.executionsFinished, p.resumes, p.nodesDispatched, p.nodeDuration)

	return p
}

func (p *Prom) IncExecutionsStarted(workflowID string) {
	p.executionsStarted.WithLabelValues(workflowID).Inc()
}

func (p *Prom) IncExecutionsFinished(status string) {
	p.executionsFinished.WithLabelValues(status).Inc()
}

func (p *Prom) IncResumes(source string) {
	p.resumes.WithLabelValues(source).Inc()
}

func (p *Prom) IncNodeDispatched(actionID, outcome string) {
	p.nodesDispatched.WithLabelValues(actionID, outcome).Inc()
}

func (p *Prom) ObserveNodeDuration(actionID string, durationSeconds float64) {
	p.nodeDuration.WithLabelValues(actionID).Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
