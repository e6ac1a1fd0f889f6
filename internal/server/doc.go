// Package server provides the shared context of the MCP tool handlers and the
// auxiliary HTTP servers of the serve command.
//
// ServerContext resolves connection IDs to Sheets and Gmail clients, creating
// them lazily and caching them for the lifetime of the process. It also
// carries the metrics recorder and audit logger the tool handlers report to.
//
// MetricsServer exposes Prometheus metrics and HealthChecker the /healthz,
// /readyz and /healthz/detailed endpoints on a port separate from MCP traffic.
package server
