// Package resources provides MCP resources for exposing account and sheet
// data. Resources are read-only data sources that MCP clients can fetch
// without a tool call, such as the Gmail profile of the configured
// connection or the layout of the orders sheet.
package resources
