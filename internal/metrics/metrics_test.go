package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("save_field", "ok")
	m.ObserveOperation("save_field", "ok")
	m.ObserveOperation("save_field", "validation")
	m.IncRateLimited()
	m.IncMerges()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("save_field", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("save_field", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Merges))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Submissions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("x", "ok")
		m.IncReplays()
		m.IncRecoveryStarted()
		m.IncRecoverySucceeded()
		m.IncRecoveryLocked()
		m.IncRateLimited()
		m.IncMerges()
		m.IncSubmissions()
	})
}

func TestHandler_ServesPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncSubmissions()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "intake_applications_submitted_total 1")
}
