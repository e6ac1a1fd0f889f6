package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmailer/internal/orders"
	"github.com/teemow/sheetmailer/internal/server"
)

// Resource URIs.
const (
	URIGmailProfile = "sheetmailer://gmail/profile"
	URIOrdersLayout = "sheetmailer://sheets/orders-layout"
)

// RegisterResources registers the account and sheet layout resources
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		URIGmailProfile,
		"Gmail Profile",
		mcp.WithResourceDescription("Address and mailbox totals of the default Gmail connection"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleGmailProfile(ctx, request, sc)
	})

	layoutResource := mcp.NewResource(
		URIOrdersLayout,
		"Orders Sheet Layout",
		mcp.WithResourceDescription("Sheet name and columns of the orders sheet"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(layoutResource, handleOrdersLayout)

	return nil
}

func handleGmailProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client, err := sc.GmailClient()
	if err != nil {
		return nil, err
	}

	profile, err := client.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Gmail profile: %w", err)
	}

	return jsonContents(request.Params.URI, map[string]interface{}{
		"connection":    client.Connection(),
		"email":         profile.EmailAddress,
		"messagesTotal": profile.MessagesTotal,
		"threadsTotal":  profile.ThreadsTotal,
	})
}

func handleOrdersLayout(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, map[string]interface{}{
		"sheet":   orders.SheetName,
		"columns": orders.Headers,
		"range":   fmt.Sprintf("%s!A:%c", orders.SheetName, 'A'+len(orders.Headers)-1),
	})
}

func jsonContents(uri string, data map[string]interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
