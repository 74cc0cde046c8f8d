package dispatch

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// windowSize bounds the rolling outcome history.
	windowSize = 50

	// DefaultFailureThreshold marks the service degraded once more than
	// 5% of windowed outcomes failed. One source variant documents 75%
	// in a comment while enforcing 5%; the enforced value is the
	// contract here.
	DefaultFailureThreshold = 0.05
)

// Window tracks the most recent operation outcomes and derives the two
// health counters published to the health check. All access goes through
// the mutex; completions from concurrent handlers never lose updates.
type Window struct {
	mu        sync.Mutex
	outcomes  [windowSize]bool
	next      int
	filled    int
	successes int
	failures  int

	threshold float64

	successGauge prometheus.Gauge
	failureGauge prometheus.Gauge
}

// NewWindow creates a Window with the given failure threshold, registering
// its gauges with reg when provided. A non-positive threshold falls back
// to the default.
func NewWindow(threshold float64, reg prometheus.Registerer) *Window {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}

	w := &Window{
		threshold: threshold,
		successGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "equipd_window_successes",
			Help: "Successful outcomes within the rolling window.",
		}),
		failureGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "equipd_window_failures",
			Help: "Failed outcomes within the rolling window.",
		}),
	}

	if reg != nil {
		reg.MustRegister(w.successGauge, w.failureGauge)
	}

	return w
}

// Record appends one outcome, evicting the oldest once the window is full.
func (w *Window) Record(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == windowSize {
		if w.outcomes[w.next] {
			w.successes--
		} else {
			w.failures--
		}
	} else {
		w.filled++
	}

	w.outcomes[w.next] = ok
	w.next = (w.next + 1) % windowSize

	if ok {
		w.successes++
	} else {
		w.failures++
	}

	w.successGauge.Set(float64(w.successes))
	w.failureGauge.Set(float64(w.failures))
}

// Counts returns the success and failure totals within the window.
func (w *Window) Counts() (successes, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.successes, w.failures
}

// Healthy reports whether the windowed failure ratio is at or below the
// threshold. An empty window is healthy.
func (w *Window) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == 0 {
		return true
	}
	return float64(w.failures)/float64(w.filled) <= w.threshold
}

// HealthHandler exposes the window as an HTTP health check: 200 while the
// failure ratio is acceptable, 503 once it is not.
func HealthHandler(w *Window) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		if w.Healthy() {
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("ok"))
			return
		}
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte("degraded"))
	})
}
