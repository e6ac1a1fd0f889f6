// Package instrumentation provides OpenTelemetry metrics, tracing and the
// tool audit log for sheetmailer.
//
// # Metrics
//
// Agent:
//   - agent_runs_total, agent_run_activations, agent_run_duration_seconds
//     by stop reason
//   - reasoning_calls_total, reasoning_call_duration_seconds by provider,
//     model and status
//
// Tools and Google APIs:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds by tool and status
//   - google_api_operations_total, google_api_operation_duration_seconds by
//     service (sheets, gmail, userinfo), operation and status
//
// Connections:
//   - connection_auth_total by toolkit and result
//   - oauth_token_refresh_total by result
//
// Server:
//   - http_requests_total, http_request_duration_seconds for the streamable
//     HTTP MCP endpoint
//
// # Tracing
//
// Spans are created for each agent run (agent.run), each model request
// (llm.<provider>), each tool invocation (tool.<name>) and each Google API
// call (google.<service>.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default 0.1)
//   - METRICS_DETAILED_LABELS, AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAgentRun(ctx, "final_answer", 3, time.Since(start))
package instrumentation
