package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.IncRegistration("created")
	m.IncRegistration("created")
	m.IncVoteTransition("created")
	m.IncDispatchFailure("webhook")
	m.IncReport()
	m.ObserveOperation("vote", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsFiled))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `participa_dispatch_failures_total{channel="webhook"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRegistration("x")
		m.IncLogin("x")
		m.IncEmailVerification("x")
		m.IncVoteTransition("x")
		m.IncReport()
		m.IncDispatchFailure("x")
		m.ObserveOperation("x", time.Now())
	})
}
