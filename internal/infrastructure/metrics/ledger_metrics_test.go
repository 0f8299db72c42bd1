package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetrics_Contadores(t *testing.T) {
	m := NewLedgerMetrics()
	m.ObserveCommit("commit", "ok", 20*time.Millisecond)
	m.ObserveCommit("commit", "ok", 30*time.Millisecond)
	m.ObserveCommit("commit", "conflict", time.Millisecond)
	m.ObserveAuditFailure("adjustment_batch")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commits.WithLabelValues("commit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("commit", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures.WithLabelValues("adjustment_batch")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestLedgerMetrics_Handler(t *testing.T) {
	m := NewLedgerMetrics()
	m.ObserveCommit("delete", "not_found", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `stockledger_adjustment_operations_total{op="delete",outcome="not_found"} 1`)
}

func TestLedgerMetrics_NilSeguro(t *testing.T) {
	var m *LedgerMetrics
	assert.NotPanics(t, func() {
		m.ObserveCommit("commit", "ok", time.Millisecond)
		m.ObserveAuditFailure("product")
	})
}
