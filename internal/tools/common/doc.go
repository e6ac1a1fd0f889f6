// Package common provides shared utilities for MCP tool implementations:
// connection selection, argument helpers, JSON results and the instrumented
// handler wrapper.
package common
