// Package metrics exposes Prometheus counters for the rate card access lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ratecard"

// Approval outcomes.
const (
	OutcomeIssued          = "issued"
	OutcomeNotFound        = "not_found"
	OutcomeAlreadyApproved = "already_approved"
	OutcomeError           = "error"
)

// Redemption outcomes.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
)

type Metrics struct {
	RequestsSubmitted prometheus.Counter
	Approvals         *prometheus.CounterVec
	Redemptions       *prometheus.CounterVec
	AccessRecorded    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the lifecycle counters and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_submitted_total",
			Help:      "Access requests received from the intake form.",
		}),
		Approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_total",
			Help:      "Operator approval attempts by outcome.",
		}, []string{"outcome"}),
		Redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Token presentations by outcome.",
		}, []string{"outcome"}),
		AccessRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_recorded_total",
			Help:      "Requests marked as accessed for the first time.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.RequestsSubmitted, m.Approvals, m.Redemptions, m.AccessRecorded)
	return m
}

// NewWithProcessCollectors is New plus the Go runtime and process collectors, for the server binary.
func NewWithProcessCollectors() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
