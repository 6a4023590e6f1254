// Package config provides 12-factor configuration management for the kernel
// manager client.
//
// Configuration is loaded from environment variables with sensible defaults;
// an optional YAML file can overlay values for development setups.
//
// Configuration Sections:
//   - Service: kernel service endpoint (base URL, token, timeouts, retries)
//   - Poll: active/standby intervals for the two pollers and standby policy
//   - Logging: log level and output format
//   - Metrics: optional Prometheus endpoint address
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Talking to %s\n", cfg.Service.BaseURL)
//
// Environment Variables:
//   - KERNEL_BASE_URL, KERNEL_TOKEN, KERNEL_HTTP_TIMEOUT
//   - POLL_SPECS_ACTIVE, POLL_RUNNING_ACTIVE, POLL_STANDBY
//   - LOG_LEVEL, LOG_DEV, METRICS_ADDR
package config
