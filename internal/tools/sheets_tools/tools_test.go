package sheets_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/sheets"
)

func fakeSheets(t *testing.T) *server.ServerContext {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/spreadsheets/sheet-1/values/Orders!A1:B2":
			_, _ = w.Write([]byte(`{"range":"Orders!A1:B2","majorDimension":"ROWS","values":[["Date","Order ID"],["2026-10-01","ORD-1000"]]}`))
		case "/v4/spreadsheets/sheet-1/values:batchGet":
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","valueRanges":[{"range":"Orders!A1:A2","values":[["Date"],["2026-10-01"]]},{"range":"Orders!G1:G2","values":[["Total"],["10"]]}]}`))
		case "/v4/spreadsheets/sheet-1":
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","properties":{"title":"Sales"},"sheets":[{"properties":{"title":"Orders"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := sheets.NewClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	sc := server.NewServerContext(context.Background(), server.Config{SheetsConnection: "conn-sheets"})
	sc.SetSheetsClientForConnection("conn-sheets", client)
	return sc
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleGetValues(t *testing.T) {
	sc := fakeSheets(t)

	res, err := handleGetValues(sc)(context.Background(), call(map[string]interface{}{
		"spreadsheet_id": "sheet-1",
		"range":          "Orders!A1:B2",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var vr sheets.ValueRange
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &vr))
	assert.Equal(t, "Orders!A1:B2", vr.Range)
	assert.Equal(t, "ORD-1000", vr.Values[1][1])
}

func TestHandleGetValues_Errors(t *testing.T) {
	sc := fakeSheets(t)

	tests := []struct {
		name        string
		args        map[string]interface{}
		errContains string
	}{
		{"missing spreadsheet", map[string]interface{}{"range": "A1"}, "spreadsheet_id is required"},
		{"missing range", map[string]interface{}{"spreadsheet_id": "sheet-1"}, "range is required"},
		{"unknown sheet", map[string]interface{}{"spreadsheet_id": "nope", "range": "A1"}, "Failed to read values"},
		{"unknown connection", map[string]interface{}{"spreadsheet_id": "sheet-1", "range": "A1", "connection": "conn-x"}, "failed to create Sheets client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handleGetValues(sc)(context.Background(), call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.errContains)
		})
	}
}

func TestHandleBatchGetValues(t *testing.T) {
	sc := fakeSheets(t)

	for _, ranges := range []interface{}{
		"Orders!A1:A2, Orders!G1:G2",
		[]interface{}{"Orders!A1:A2", "Orders!G1:G2"},
	} {
		res, err := handleBatchGetValues(sc)(context.Background(), call(map[string]interface{}{
			"spreadsheet_id": "sheet-1",
			"ranges":         ranges,
		}))
		require.NoError(t, err)
		require.False(t, res.IsError, resultText(t, res))

		var out struct {
			ValueRanges []sheets.ValueRange `json:"valueRanges"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
		require.Len(t, out.ValueRanges, 2)
		assert.Equal(t, "10", out.ValueRanges[1].Values[1][0])
	}

	res, err := handleBatchGetValues(sc)(context.Background(), call(map[string]interface{}{"spreadsheet_id": "sheet-1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleGetMetadata(t *testing.T) {
	sc := fakeSheets(t)

	res, err := handleGetMetadata(sc)(context.Background(), call(map[string]interface{}{"spreadsheet_id": "sheet-1"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), `"title": "Sales"`)
}

func TestRegisterSheetsTools(t *testing.T) {
	sc := server.NewServerContext(context.Background(), server.Config{})
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterSheetsTools(s, sc, true))

	tools := s.ListTools()
	assert.Len(t, tools, 3)
	for _, name := range []string{ToolGetValues, ToolBatchGetValues, ToolGetMetadata} {
		require.Contains(t, tools, name)
		assert.Contains(t, tools[name].Tool.InputSchema.Required, "spreadsheet_id")
	}
}
