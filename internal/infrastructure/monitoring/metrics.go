package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for one manager instance. Each
// instance carries its own registry so that a process hosting several
// managers never double-registers collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Poll scheduler metrics
	PollTicks   *prometheus.CounterVec
	PollSkips   *prometheus.CounterVec
	PollStandby *prometheus.GaugeVec

	// Refresh metrics
	Refreshes       *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec

	// Change notification metrics
	Notifications *prometheus.CounterVec

	// Lifecycle metrics
	KernelsRunning    prometheus.Gauge
	ConnectionsActive prometheus.Gauge
	Starts            prometheus.Counter
	Shutdowns         prometheus.Counter

	// Transport metrics
	TransportErrors *prometheus.CounterVec

	startTime time.Time
	Uptime    prometheus.Gauge
}

// NewMetrics creates a metrics collector with a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		PollTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelmgr_poll_ticks_total",
				Help: "Total number of poll ticks executed, by poller and result",
			},
			[]string{"poller", "result"},
		),
		PollSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelmgr_poll_skips_total",
				Help: "Ticks skipped because a refresh was still in flight",
			},
			[]string{"poller"},
		),
		PollStandby: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernelmgr_poll_standby",
				Help: "1 when the poller is on its standby interval, 0 when active",
			},
			[]string{"poller"},
		),

		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelmgr_refreshes_total",
				Help: "Total number of cache refreshes, by cache and result",
			},
			[]string{"cache", "result"},
		),
		RefreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernelmgr_refresh_duration_seconds",
				Help:    "Refresh round-trip duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"cache"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelmgr_notifications_total",
				Help: "Change notifications emitted, by channel",
			},
			[]string{"channel"},
		),

		KernelsRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernelmgr_kernels_running",
				Help: "Running kernel instances in the local cache",
			},
		),
		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernelmgr_connections_active",
				Help: "Registered kernel connections",
			},
		),
		Starts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kernelmgr_kernel_starts_total",
				Help: "Kernels started through this manager",
			},
		),
		Shutdowns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kernelmgr_kernel_shutdowns_total",
				Help: "Kernels shut down through this manager",
			},
		),

		TransportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelmgr_transport_errors_total",
				Help: "Transport failures, by operation",
			},
			[]string{"op"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernelmgr_uptime_seconds",
				Help: "Manager uptime in seconds",
			},
		),
	}

	return m
}

// ObserveRefresh records one refresh outcome with its duration.
func (m *Metrics) ObserveRefresh(cache string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Refreshes.WithLabelValues(cache, result).Inc()
	m.RefreshDuration.WithLabelValues(cache).Observe(d.Seconds())
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for test scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
