package gmail_tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/tools/common"
)

// Tool names
const (
	ToolSendEmail   = "gmail_send_email"
	ToolCreateDraft = "gmail_create_draft"
)

// RegisterGmailTools registers all Gmail-related tools with the MCP server
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	sendEmailTool := mcp.NewTool(ToolSendEmail,
		append([]mcp.ToolOption{
			mcp.WithDescription("Send an email through Gmail"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
		}, messageParams()...)...,
	)
	s.AddTool(sendEmailTool, common.InstrumentedToolHandler(ToolSendEmail,
		instrumentation.ServiceGmail, instrumentation.OperationSend, google.ToolkitGmail, sc,
		handleSendEmail(sc)))

	createDraftTool := mcp.NewTool(ToolCreateDraft,
		append([]mcp.ToolOption{
			mcp.WithDescription("Create a Gmail draft without sending it"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
		}, messageParams()...)...,
	)
	s.AddTool(createDraftTool, common.InstrumentedToolHandler(ToolCreateDraft,
		instrumentation.ServiceGmail, instrumentation.OperationDraft, google.ToolkitGmail, sc,
		handleCreateDraft(sc)))

	return nil
}

func messageParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString(common.ConnectionArg,
			mcp.Description("Gmail connection ID (default: GOOGLE_MAIL_CONNECTION_ID)"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithBoolean("is_html",
			mcp.Description("Whether the body is HTML (default: false for plain text)"),
		),
	}
}
