// Package metrics instruments controller sessions with Prometheus collectors.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "workerctl"
	subsystem = "controller"
)

// Outcome labels.
const (
	OutcomeTracked   = "tracked"
	OutcomeAbandoned = "abandoned"
	OutcomeUnknown   = "unknown"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	commandsIssued  *prometheus.CounterVec
	acks            *prometheus.CounterVec
	results         *prometheus.CounterVec
	workerLogs      *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		commandsIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commands_issued_total",
				Help:      "Total number of commands issued to workers",
			},
			[]string{"command"},
		),
		acks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "acks_total",
				Help:      "Total number of acknowledgments received, by tracking outcome",
			},
			[]string{"outcome"},
		),
		results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "results_total",
				Help:      "Total number of data results received, by kind and tracking outcome",
			},
			[]string{"kind", "outcome"},
		),
		workerLogs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "worker_logs_total",
				Help:      "Total number of log records forwarded by workers",
			},
			[]string{"severity"},
		),
		transportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transport_errors_total",
				Help:      "Total number of transport failures that ended a session",
			},
			[]string{"op"},
		),
		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sessions_active",
				Help:      "Number of controller sessions currently open",
			},
		),
	}
}

// CommandIssued counts an issued command.
func (m *Metrics) CommandIssued(command string) {
	if m == nil {
		return
	}

	m.commandsIssued.WithLabelValues(command).Inc()
}

// Ack counts an acknowledgment with its outcome.
func (m *Metrics) Ack(outcome string) {
	if m == nil {
		return
	}

	m.acks.WithLabelValues(outcome).Inc()
}

// Result counts a data result with its kind and outcome.
func (m *Metrics) Result(kind, outcome string) {
	if m == nil {
		return
	}

	m.results.WithLabelValues(kind, outcome).Inc()
}

// WorkerLog counts a forwarded worker log record.
func (m *Metrics) WorkerLog(severity string) {
	if m == nil {
		return
	}

	m.workerLogs.WithLabelValues(severity).Inc()
}

// TransportError counts a failure of the given operation.
func (m *Metrics) TransportError(op string) {
	if m == nil {
		return
	}

	m.transportErrors.WithLabelValues(op).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}

	m.sessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}

	m.sessionsActive.Dec()
}
