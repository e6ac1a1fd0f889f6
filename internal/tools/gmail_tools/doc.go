// Package gmail_tools provides MCP tools for sending mail through Gmail.
//
// Both tools write on behalf of the user, so they are only registered when
// the server is not read-only.
package gmail_tools
