package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWindowCounts(t *testing.T) {
	w := NewWindow(DefaultFailureThreshold, nil)

	for i := 0; i < 10; i++ {
		w.Record(true)
	}
	w.Record(false)

	successes, failures := w.Counts()
	assert.Equal(t, 10, successes)
	assert.Equal(t, 1, failures)
}

func TestWindowEvictsOldestOutcomes(t *testing.T) {
	w := NewWindow(DefaultFailureThreshold, nil)

	for i := 0; i < windowSize; i++ {
		w.Record(false)
	}
	successes, failures := w.Counts()
	assert.Equal(t, 0, successes)
	assert.Equal(t, windowSize, failures)

	// Another full window of successes pushes every failure out.
	for i := 0; i < windowSize; i++ {
		w.Record(true)
	}
	successes, failures = w.Counts()
	assert.Equal(t, windowSize, successes)
	assert.Equal(t, 0, failures)
}

func TestWindowHealthy(t *testing.T) {
	t.Run("empty window is healthy", func(t *testing.T) {
		w := NewWindow(DefaultFailureThreshold, nil)
		assert.True(t, w.Healthy())
	})

	t.Run("five percent failures stays healthy", func(t *testing.T) {
		w := NewWindow(DefaultFailureThreshold, nil)
		for i := 0; i < windowSize-2; i++ {
			w.Record(true)
		}
		w.Record(false)
		w.Record(false)
		// 2/50 = 4%
		assert.True(t, w.Healthy())
	})

	t.Run("above the threshold is degraded", func(t *testing.T) {
		w := NewWindow(DefaultFailureThreshold, nil)
		for i := 0; i < windowSize-3; i++ {
			w.Record(true)
		}
		for i := 0; i < 3; i++ {
			w.Record(false)
		}
		// 3/50 = 6%
		assert.False(t, w.Healthy())
	})

	t.Run("custom threshold", func(t *testing.T) {
		w := NewWindow(0.5, nil)
		w.Record(true)
		w.Record(false)
		assert.True(t, w.Healthy())
		w.Record(false)
		assert.False(t, w.Healthy())
	})
}

func TestWindowGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := NewWindow(DefaultFailureThreshold, reg)

	w.Record(true)
	w.Record(true)
	w.Record(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(w.successGauge))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.failureGauge))
}

func TestHealthHandler(t *testing.T) {
	w := NewWindow(DefaultFailureThreshold, nil)
	handler := HealthHandler(w)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < windowSize; i++ {
		w.Record(false)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
