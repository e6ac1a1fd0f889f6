package sheets_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/sheets"
	"github.com/teemow/sheetmailer/internal/tools/batch"
	"github.com/teemow/sheetmailer/internal/tools/common"
)

// Tool names
const (
	ToolGetValues      = "sheets_get_values"
	ToolBatchGetValues = "sheets_batch_get_values"
	ToolGetMetadata    = "sheets_get_metadata"
)

// RegisterSheetsTools registers all Sheets-related tools with the MCP server.
// All of them only read, so readOnly does not restrict anything.
func RegisterSheetsTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	connectionParam := mcp.WithString(common.ConnectionArg,
		mcp.Description("Google Sheets connection ID (default: GOOGLE_SHEETS_CONNECTION_ID)"),
	)
	spreadsheetParam := mcp.WithString("spreadsheet_id",
		mcp.Required(),
		mcp.Description("ID of the spreadsheet, as found in its URL"),
	)

	getValuesTool := mcp.NewTool(ToolGetValues,
		mcp.WithDescription("Read cell values from one range of a Google Sheet"),
		mcp.WithReadOnlyHintAnnotation(true),
		connectionParam,
		spreadsheetParam,
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description("Range in A1 notation, e.g. 'Orders!A1:G51' or 'Orders'"),
		),
		mcp.WithString("major_dimension",
			mcp.Description("ROWS (default) or COLUMNS"),
			mcp.Enum(sheets.DimensionRows, sheets.DimensionColumns),
		),
	)
	s.AddTool(getValuesTool, common.InstrumentedToolHandler(ToolGetValues,
		instrumentation.ServiceSheets, instrumentation.OperationGet, google.ToolkitSheets, sc,
		handleGetValues(sc)))

	batchGetValuesTool := mcp.NewTool(ToolBatchGetValues,
		mcp.WithDescription("Read cell values from several ranges of a Google Sheet in one request"),
		mcp.WithReadOnlyHintAnnotation(true),
		connectionParam,
		spreadsheetParam,
		mcp.WithString("ranges",
			mcp.Required(),
			mcp.Description("Ranges in A1 notation: an array or a comma-separated string"),
		),
	)
	s.AddTool(batchGetValuesTool, common.InstrumentedToolHandler(ToolBatchGetValues,
		instrumentation.ServiceSheets, instrumentation.OperationBatchGet, google.ToolkitSheets, sc,
		handleBatchGetValues(sc)))

	metadataTool := mcp.NewTool(ToolGetMetadata,
		mcp.WithDescription("Get the title and sheet names of a Google Sheet"),
		mcp.WithReadOnlyHintAnnotation(true),
		connectionParam,
		spreadsheetParam,
	)
	s.AddTool(metadataTool, common.InstrumentedToolHandler(ToolGetMetadata,
		instrumentation.ServiceSheets, instrumentation.OperationMetadata, google.ToolkitSheets, sc,
		handleGetMetadata(sc)))

	return nil
}

func clientFor(sc *server.ServerContext, args map[string]interface{}) (*sheets.Client, error) {
	connection := common.GetConnectionFromArgs(args, sc, google.ToolkitSheets)
	client, err := sc.SheetsClientForConnection(connection)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}
	return client, nil
}

func handleGetValues(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		spreadsheetID, err := common.RequiredString(args, "spreadsheet_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		readRange, err := common.RequiredString(args, "range")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := clientFor(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		values, err := client.GetValues(ctx, spreadsheetID, readRange, common.OptionalString(args, "major_dimension"))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read values: %v", err)), nil
		}
		return common.JSONResult(values)
	}
}

func handleBatchGetValues(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		spreadsheetID, err := common.RequiredString(args, "spreadsheet_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ranges, err := batch.ParseList(args["ranges"], "ranges")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := clientFor(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		values, err := client.BatchGetValues(ctx, spreadsheetID, ranges)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read values: %v", err)), nil
		}
		return common.JSONResult(map[string]interface{}{
			"spreadsheetId": spreadsheetID,
			"valueRanges":   values,
		})
	}
}

func handleGetMetadata(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		spreadsheetID, err := common.RequiredString(args, "spreadsheet_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := clientFor(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		meta, err := client.GetMetadata(ctx, spreadsheetID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get spreadsheet metadata: %v", err)), nil
		}
		return common.JSONResult(meta)
	}
}
