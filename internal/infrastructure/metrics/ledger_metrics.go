package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
)

var _ inventory.CommitObserver = (*LedgerMetrics)(nil)

// LedgerMetrics colectores Prometheus del libro de ajustes sobre un registry propio.
type LedgerMetrics struct {
	registry      *prometheus.Registry
	commits       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	auditFailures *prometheus.CounterVec
}

// NewLedgerMetrics registra los colectores (más los de proceso y runtime de Go).
func NewLedgerMetrics() *LedgerMetrics {
	reg := prometheus.NewRegistry()
	m := &LedgerMetrics{
		registry: reg,
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockledger",
			Name:      "adjustment_operations_total",
			Help:      "Operaciones sobre lotes de ajuste por tipo y resultado.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stockledger",
			Name:      "adjustment_operation_duration_seconds",
			Help:      "Duración de commit, edición y borrado de lotes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockledger",
			Name:      "audit_write_failures_total",
			Help:      "Entradas de auditoría que no se pudieron registrar tras una mutación confirmada.",
		}, []string{"resource_type"}),
	}
	reg.MustRegister(
		m.commits, m.duration, m.auditFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCommit cuenta el resultado y registra la duración.
func (m *LedgerMetrics) ObserveCommit(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveAuditFailure cuenta una auditoría perdida.
func (m *LedgerMetrics) ObserveAuditFailure(resourceType string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(resourceType).Inc()
}

// Handler expone el registry en formato Prometheus.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
