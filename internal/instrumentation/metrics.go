package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrService    = "service"
	attrResult     = "result"
	attrTool       = "tool"
	attrProvider   = "provider"
	attrModel      = "model"
	attrStopReason = "stop_reason"
	attrToolkit    = "toolkit"
	attrConnection = "connection"
)

// Metrics records sheetmailer's counters and histograms. A nil *Metrics or a
// zero Metrics is a valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	connectionAuthTotal    metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	reasoningCallsTotal   metric.Int64Counter
	reasoningCallDuration metric.Float64Histogram

	agentRunsTotal      metric.Int64Counter
	agentRunActivations metric.Int64Histogram
	agentRunDuration    metric.Float64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds connection IDs to tool metrics.
	detailedLabels bool
}

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests served by the MCP endpoint"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	if m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	if m.connectionAuthTotal, err = meter.Int64Counter(
		"connection_auth_total",
		metric.WithDescription("Total number of connection authorization attempts"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connection_auth_total counter: %w", err)
	}

	if m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refreshes"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	if m.reasoningCallsTotal, err = meter.Int64Counter(
		"reasoning_calls_total",
		metric.WithDescription("Total number of calls to the language model"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create reasoning_calls_total counter: %w", err)
	}

	if m.reasoningCallDuration, err = meter.Float64Histogram(
		"reasoning_call_duration_seconds",
		metric.WithDescription("Language model call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create reasoning_call_duration_seconds histogram: %w", err)
	}

	if m.agentRunsTotal, err = meter.Int64Counter(
		"agent_runs_total",
		metric.WithDescription("Total number of agent loop runs by stop reason"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_runs_total counter: %w", err)
	}

	if m.agentRunActivations, err = meter.Int64Histogram(
		"agent_run_activations",
		metric.WithDescription("Loop activations used by one agent run"),
		metric.WithUnit("{activation}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 11, 16, 32),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_run_activations histogram: %w", err)
	}

	if m.agentRunDuration, err = meter.Float64Histogram(
		"agent_run_duration_seconds",
		metric.WithDescription("Agent run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_run_duration_seconds histogram: %w", err)
	}

	if m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one request to the streamable HTTP endpoint.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records a Sheets, Gmail or userinfo API call.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordConnectionAuth records the outcome of a connection authorization.
// result is one of the AuthResult constants.
func (m *Metrics) RecordConnectionAuth(ctx context.Context, toolkit, result string) {
	if m == nil || m.connectionAuthTotal == nil {
		return
	}

	m.connectionAuthTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrToolkit, toolkit),
		attribute.String(attrResult, result),
	))
}

// RecordOAuthTokenRefresh records a token refresh with its result.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordReasoningCall records one language model request.
func (m *Metrics) RecordReasoningCall(ctx context.Context, provider, model, status string, duration time.Duration) {
	if m == nil || m.reasoningCallsTotal == nil || m.reasoningCallDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status),
	)
	m.reasoningCallsTotal.Add(ctx, 1, attrs)
	m.reasoningCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAgentRun records a finished loop run.
func (m *Metrics) RecordAgentRun(ctx context.Context, stopReason string, activations int, duration time.Duration) {
	if m == nil || m.agentRunsTotal == nil || m.agentRunActivations == nil || m.agentRunDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStopReason, stopReason))
	m.agentRunsTotal.Add(ctx, 1, attrs)
	m.agentRunActivations.Record(ctx, int64(activations), attrs)
	m.agentRunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocationWithConnection records an MCP tool invocation, adding
// the connection ID only when detailed labels are enabled.
func (m *Metrics) RecordToolInvocationWithConnection(ctx context.Context, toolName, status, connectionID string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && connectionID != "" {
		attrs = append(attrs, attribute.String(attrConnection, connectionID))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
