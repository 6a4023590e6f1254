package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoInstancesRegisterIndependently(t *testing.T) {
	// Both constructions must succeed; a shared registry would panic on
	// the second promauto registration.
	a := NewMetrics()
	b := NewMetrics()

	a.Starts.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.Starts))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.Starts))
}

func TestUpdateUptimeTracksElapsedTime(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Uptime))

	m.startTime = time.Now().Add(-90 * time.Second)
	m.UpdateUptime()

	assert.InDelta(t, 90, testutil.ToFloat64(m.Uptime), 5)
}

func TestObserveRefreshClassifiesResult(t *testing.T) {
	m := NewMetrics()

	m.ObserveRefresh("specs", 10*time.Millisecond, nil)
	m.ObserveRefresh("specs", 10*time.Millisecond, assert.AnError)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Refreshes.WithLabelValues("specs", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Refreshes.WithLabelValues("specs", "error")))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := NewMetrics()
	m.Starts.Inc()
	m.UpdateUptime()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "kernelmgr_kernel_starts_total 1")
	assert.Contains(t, body, "kernelmgr_uptime_seconds")
}
