// Package registry assembles the MCP server that exposes every built-in tool.
package registry

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmailer/internal/resources"
	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/tools/gmail_tools"
	"github.com/teemow/sheetmailer/internal/tools/sheets_tools"
)

// ServerName is the MCP implementation name reported to clients.
const ServerName = "sheetmailer"

// NewServer creates an MCP server with all tools and resources registered.
// Write tools are left out when readOnly is set.
func NewServer(sc *server.ServerContext, version string, readOnly bool) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer(ServerName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithRecovery(),
	)
	if err := RegisterAllTools(mcpSrv, sc, readOnly); err != nil {
		return nil, err
	}
	if err := resources.RegisterResources(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}
	return mcpSrv, nil
}

// RegisterAllTools registers all MCP tools
func RegisterAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Sheets",
			register: func() error {
				return sheets_tools.RegisterSheetsTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Gmail",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, sc, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
