// Package metrics provides Prometheus metrics for the campaign engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ShardsStagedTotal *prometheus.CounterVec
	TasksLinkedTotal  prometheus.Counter
	ProviderCalls     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lorekeeper_operations_total",
				Help: "Total engine operations by name and outcome.",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lorekeeper_operation_duration_seconds",
				Help:    "Operation processing duration by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ShardsStagedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lorekeeper_shards_staged_total",
				Help: "Shards handled by staging, by result.",
			},
			[]string{"result"},
		),
		TasksLinkedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lorekeeper_tasks_linked_total",
				Help: "Planning tasks auto-completed by the content linker.",
			},
		),
		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lorekeeper_provider_calls_total",
				Help: "External collaborator calls by provider and outcome.",
			},
			[]string{"provider", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.ShardsStagedTotal)
	reg.MustRegister(m.TasksLinkedTotal)
	reg.MustRegister(m.ProviderCalls)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation increments the operation counter.
func (m *Metrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveDuration records operation duration.
func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordShard increments the staging result counter.
func (m *Metrics) RecordShard(result string) {
	m.ShardsStagedTotal.WithLabelValues(result).Inc()
}

// RecordTaskLinked increments the auto-completed task counter.
func (m *Metrics) RecordTaskLinked() {
	m.TasksLinkedTotal.Inc()
}

// RecordProviderCall increments the collaborator call counter.
func (m *Metrics) RecordProviderCall(provider, status string) {
	m.ProviderCalls.WithLabelValues(provider, status).Inc()
}
