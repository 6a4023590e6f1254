// Package monitoring provides Prometheus metrics for the kernel manager.
//
// Each Metrics instance owns a private registry, so a process hosting many
// managers keeps their collectors isolated. The CLI exposes a registry via
// promhttp when configured with a metrics address.
//
// Metric Families:
//   - kernelmgr_poll_ticks_total / kernelmgr_poll_skips_total: scheduler activity
//   - kernelmgr_refreshes_total / kernelmgr_refresh_duration_seconds: cache refreshes
//   - kernelmgr_notifications_total: change notifications emitted
//   - kernelmgr_kernels_running / kernelmgr_connections_active: lifecycle gauges
//   - kernelmgr_transport_errors_total: wire failures by operation
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	metrics.ObserveRefresh("running", elapsed, err)
//	http.ListenAndServe(addr, metrics.Handler())
package monitoring
