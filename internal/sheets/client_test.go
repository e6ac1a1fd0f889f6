package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestGetValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Orders!A1:G3", r.URL.Path)
		assert.Equal(t, "ROWS", r.URL.Query().Get("majorDimension"))
		_, _ = w.Write([]byte(`{
			"range": "Orders!A1:G3",
			"majorDimension": "ROWS",
			"values": [["Date","Order ID"],["2026-10-01","ORD-1000"]]
		}`))
	})

	vr, err := c.GetValues(context.Background(), "sheet-1", "Orders!A1:G3", "")
	require.NoError(t, err)
	assert.Equal(t, "Orders!A1:G3", vr.Range)
	require.Len(t, vr.Values, 2)
	assert.Equal(t, "ORD-1000", vr.Values[1][1])
}

func TestGetValuesEmptyRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"range":"Orders!A100:G100","majorDimension":"ROWS"}`))
	})

	vr, err := c.GetValues(context.Background(), "sheet-1", "Orders!A100:G100", "rows")
	require.NoError(t, err)
	assert.NotNil(t, vr.Values)
	assert.Empty(t, vr.Values)
}

func TestGetValuesValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	ctx := context.Background()

	tests := []struct {
		name      string
		id, rng   string
		dimension string
	}{
		{"missing id", "", "A1", ""},
		{"missing range", "s", "", ""},
		{"bad dimension", "s", "A1", "DIAGONAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.GetValues(ctx, tt.id, tt.rng, tt.dimension)
			assert.Error(t, err)
		})
	}
}

func TestGetValuesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})

	_, err := c.GetValues(context.Background(), "missing", "A1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read range A1")
}

func TestBatchGetValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values:batchGet", r.URL.Path)
		assert.Equal(t, []string{"Orders!A1:A2", "Orders!G1:G2"}, r.URL.Query()["ranges"])
		_, _ = w.Write([]byte(`{
			"spreadsheetId": "sheet-1",
			"valueRanges": [
				{"range":"Orders!A1:A2","majorDimension":"ROWS","values":[["Date"],["2026-10-01"]]},
				{"range":"Orders!G1:G2","majorDimension":"ROWS","values":[["Total"],["99.5"]]}
			]
		}`))
	})

	got, err := c.BatchGetValues(context.Background(), "sheet-1", []string{"Orders!A1:A2", "Orders!G1:G2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Orders!G1:G2", got[1].Range)
	assert.Equal(t, "99.5", got[1].Values[1][0])

	_, err = c.BatchGetValues(context.Background(), "sheet-1", nil)
	assert.Error(t, err)
}

func TestGetMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/sheet-1", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{
			"spreadsheetId": "sheet-1",
			"spreadsheetUrl": "https://docs.google.com/spreadsheets/d/sheet-1",
			"properties": {"title": "Sales", "locale": "en_US"},
			"sheets": [
				{"properties": {"sheetId": 0, "title": "Orders", "index": 0, "gridProperties": {"rowCount": 1000, "columnCount": 26}}},
				{"properties": {"sheetId": 7, "title": "Notes", "index": 1}}
			]
		}`))
	})

	meta, err := c.GetMetadata(context.Background(), "sheet-1")
	require.NoError(t, err)
	assert.Equal(t, "Sales", meta.Title)
	assert.Equal(t, []string{"Orders", "Notes"}, meta.SheetNames())
	assert.Equal(t, int64(1000), meta.Sheets[0].RowCount)
	assert.True(t, meta.HasSheet("Notes"))
	assert.False(t, meta.HasSheet("Archive"))
}

func TestUpdateValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Orders!A1", r.URL.Path)
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))

		var body struct {
			Values [][]any `json:"values"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Values, 2)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedCells":4}`))
	})

	n, err := c.UpdateValues(context.Background(), "sheet-1", "Orders!A1", [][]any{{"a", "b"}, {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestEnsureSheet(t *testing.T) {
	var added bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/spreadsheets/sheet-1":
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","sheets":[{"properties":{"title":"Sheet1"}}]}`))
		case "/v4/spreadsheets/sheet-1:batchUpdate":
			var body struct {
				Requests []struct {
					AddSheet struct {
						Properties struct {
							Title string `json:"title"`
						} `json:"properties"`
					} `json:"addSheet"`
				} `json:"requests"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Requests, 1)
			assert.Equal(t, "Orders", body.Requests[0].AddSheet.Properties.Title)
			added = true
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	created, err := c.EnsureSheet(context.Background(), "sheet-1", "Orders")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, added)

	created, err = c.EnsureSheet(context.Background(), "sheet-1", "Sheet1")
	require.NoError(t, err)
	assert.False(t, created)
}
