// Package cmd implements the command-line interface for sheetmailer.
//
// This package provides the following commands:
//   - query: Ask questions about the orders sheet and email the answers
//   - auth: Connect the Google Sheets and Gmail accounts
//   - connections: Show the status of the configured connections
//   - seed: Generate dummy orders and optionally write them to the sheet
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The query command is the default command when no subcommand is specified.
// Settings not given as flags are read from the environment, which is
// seeded from .env.local and .env in the working directory.
package cmd
