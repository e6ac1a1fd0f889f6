package gmail_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/sheetmailer/internal/gmail"
	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/tools/batch"
	"github.com/teemow/sheetmailer/internal/tools/common"
)

// parseMessage builds an email from tool arguments
func parseMessage(args map[string]interface{}) (*gmail.EmailMessage, error) {
	to, err := batch.ParseList(args["to"], "to")
	if err != nil {
		return nil, err
	}
	subject, err := common.RequiredString(args, "subject")
	if err != nil {
		return nil, err
	}
	body, err := common.RequiredString(args, "body")
	if err != nil {
		return nil, err
	}
	cc, err := batch.ParseOptionalList(args["cc"], "cc")
	if err != nil {
		return nil, err
	}
	bcc, err := batch.ParseOptionalList(args["bcc"], "bcc")
	if err != nil {
		return nil, err
	}

	msg := &gmail.EmailMessage{
		To:      to,
		Cc:      cc,
		Bcc:     bcc,
		Subject: subject,
		Body:    body,
		IsHTML:  common.OptionalBool(args, "is_html"),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func clientFor(sc *server.ServerContext, args map[string]interface{}) (*gmail.Client, error) {
	connection := common.GetConnectionFromArgs(args, sc, google.ToolkitGmail)
	client, err := sc.GmailClientForConnection(connection)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	return client, nil
}

func handleSendEmail(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		msg, err := parseMessage(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		client, err := clientFor(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		messageID, err := client.SendEmail(ctx, msg)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
		}

		return mcp.NewToolResultText(summary("Email sent successfully!", "Message ID", messageID, msg)), nil
	}
}

func handleCreateDraft(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		msg, err := parseMessage(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		client, err := clientFor(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		draftID, err := client.CreateDraft(ctx, msg)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create draft: %v", err)), nil
		}

		return mcp.NewToolResultText(summary("Draft created successfully!", "Draft ID", draftID, msg)), nil
	}
}

func summary(headline, idLabel, id string, msg *gmail.EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s: %s\nTo: %s\nSubject: %s", headline, idLabel, id, strings.Join(msg.To, ", "), msg.Subject)
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "\nCC: %s", strings.Join(msg.Cc, ", "))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "\nBCC: %s", strings.Join(msg.Bcc, ", "))
	}
	return b.String()
}
