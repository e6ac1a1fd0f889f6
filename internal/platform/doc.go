// Package platform connects the agent loop to an MCP tool server.
//
// A Platform lists the server's tools as agent.ToolSpec values and executes
// agent.ToolCall requests against it. The server is either the built-in
// sheets/gmail server running in-process or a remote server reached over
// streamable HTTP.
//
// Select narrows the offered tools to the capabilities a workflow needs,
// using an explicit name mapping with a logged substring heuristic as the
// degraded path.
package platform
