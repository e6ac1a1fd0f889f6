package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
)

// Client wraps the Google Sheets API service
type Client struct {
	service    *sheets.Service
	connection string // The connection this client is associated with
	metrics    *instrumentation.Metrics
}

// NewClient creates a Sheets client on top of an authenticated HTTP client
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return &Client{service: svc}, nil
}

// NewClientForConnection creates a Sheets client authenticated as connectionID
func NewClientForConnection(ctx context.Context, provider google.TokenSourceProvider, connectionID string, opts ...option.ClientOption) (*Client, error) {
	httpClient, err := google.HTTPClientFor(ctx, provider, connectionID)
	if err != nil {
		return nil, fmt.Errorf("no usable Sheets connection %s: %w. Run 'sheetmailer auth' first", connectionID, err)
	}
	c, err := NewClient(ctx, httpClient, opts...)
	if err != nil {
		return nil, err
	}
	c.connection = connectionID
	return c, nil
}

// Connection returns the connection ID this client is associated with
func (c *Client) Connection() string {
	return c.connection
}

// WithMetrics records Google API metrics for every call
func (c *Client) WithMetrics(metrics *instrumentation.Metrics) *Client {
	c.metrics = metrics
	return c
}

func (c *Client) observe(ctx context.Context, operation string, call func(context.Context) error) error {
	return google.Observe(ctx, c.metrics, instrumentation.ServiceSheets, operation, call)
}

// GetValues reads one range. majorDimension may be empty for ROWS.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, readRange, majorDimension string) (*ValueRange, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if readRange == "" {
		return nil, fmt.Errorf("range is required")
	}
	dim, err := normalizeDimension(majorDimension)
	if err != nil {
		return nil, err
	}

	var resp *sheets.ValueRange
	err = c.observe(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		resp, err = c.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
			MajorDimension(dim).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}
	return convertValueRange(resp), nil
}

// BatchGetValues reads several ranges in one request
func (c *Client) BatchGetValues(ctx context.Context, spreadsheetID string, ranges []string) ([]ValueRange, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("at least one range is required")
	}

	var resp *sheets.BatchGetValuesResponse
	err := c.observe(ctx, instrumentation.OperationBatchGet, func(ctx context.Context) error {
		var err error
		resp, err = c.service.Spreadsheets.Values.BatchGet(spreadsheetID).
			Ranges(ranges...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read ranges %s: %w", strings.Join(ranges, ", "), err)
	}

	out := make([]ValueRange, 0, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		out = append(out, *convertValueRange(vr))
	}
	return out, nil
}

// GetMetadata returns the title and sheets of a spreadsheet
func (c *Client) GetMetadata(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	var resp *sheets.Spreadsheet
	err := c.observe(ctx, instrumentation.OperationMetadata, func(ctx context.Context) error {
		var err error
		resp, err = c.service.Spreadsheets.Get(spreadsheetID).
			Fields("spreadsheetId,spreadsheetUrl,properties(title,locale),sheets(properties(sheetId,title,index,gridProperties))").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}
	return convertSpreadsheet(resp), nil
}

// UpdateValues writes values to a range and returns the number of updated cells
func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, writeRange string, values [][]any) (int64, error) {
	if spreadsheetID == "" {
		return 0, fmt.Errorf("spreadsheet ID is required")
	}
	if writeRange == "" {
		return 0, fmt.Errorf("range is required")
	}

	var resp *sheets.UpdateValuesResponse
	err := c.observe(ctx, instrumentation.OperationUpdate, func(ctx context.Context) error {
		var err error
		resp, err = c.service.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{
			MajorDimension: DimensionRows,
			Values:         values,
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write range %s: %w", writeRange, err)
	}
	return resp.UpdatedCells, nil
}

// EnsureSheet adds a sheet with the given title unless it already exists.
// It reports whether the sheet was created.
func (c *Client) EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error) {
	meta, err := c.GetMetadata(ctx, spreadsheetID)
	if err != nil {
		return false, err
	}
	if meta.HasSheet(title) {
		return false, nil
	}

	err = c.observe(ctx, instrumentation.OperationUpdate, func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			}},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to add sheet %s: %w", title, err)
	}
	return true, nil
}

func normalizeDimension(d string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(d)) {
	case "", DimensionRows:
		return DimensionRows, nil
	case DimensionColumns:
		return DimensionColumns, nil
	default:
		return "", fmt.Errorf("invalid major dimension %q: must be ROWS or COLUMNS", d)
	}
}

func convertValueRange(vr *sheets.ValueRange) *ValueRange {
	if vr == nil {
		return &ValueRange{}
	}
	values := vr.Values
	if values == nil {
		values = [][]any{}
	}
	return &ValueRange{
		Range:          vr.Range,
		MajorDimension: vr.MajorDimension,
		Values:         values,
	}
}

func convertSpreadsheet(s *sheets.Spreadsheet) *Spreadsheet {
	out := &Spreadsheet{
		ID:  s.SpreadsheetId,
		URL: s.SpreadsheetUrl,
	}
	if s.Properties != nil {
		out.Title = s.Properties.Title
		out.Locale = s.Properties.Locale
	}
	for _, sh := range s.Sheets {
		if sh.Properties == nil {
			continue
		}
		info := SheetInfo{
			ID:    sh.Properties.SheetId,
			Title: sh.Properties.Title,
			Index: sh.Properties.Index,
		}
		if gp := sh.Properties.GridProperties; gp != nil {
			info.RowCount = gp.RowCount
			info.ColumnCount = gp.ColumnCount
		}
		out.Sheets = append(out.Sheets, info)
	}
	return out
}
