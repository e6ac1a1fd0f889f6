package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/sheetmailer/internal/connections"
)

type fakeReader struct {
	byID map[string]connections.Connection
	all  []connections.Connection
}

func (f *fakeReader) Get(_ context.Context, id string) (connections.Connection, error) {
	c, ok := f.byID[id]
	if !ok {
		return connections.Connection{}, fmt.Errorf("%w: %s", connections.ErrNotFound, id)
	}
	return c, nil
}

func (f *fakeReader) List(context.Context, string, connections.Filter) ([]connections.Connection, error) {
	return f.all, nil
}

func TestRunConnectionsChecksConfiguredIDs(t *testing.T) {
	reader := &fakeReader{byID: map[string]connections.Connection{
		"conn_s": {ID: "conn_s", Status: connections.StatusActive, AccountEmail: "sheets@example.com"},
	}}
	var out bytes.Buffer

	err := runConnections(context.Background(), &out, reader, connections.DefaultUserID, connectionFlags{sheets: "conn_s", gmail: "conn_missing"})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Google Sheets Connection: conn_s\n   Status: ACTIVE\n   Email: sheets@example.com\n")
	assert.Contains(t, got, "Make sure the spreadsheet is shared with: sheets@example.com")
	assert.Contains(t, got, "Gmail Connection: conn_missing\n   Status: NOT FOUND\n")
}

func TestRunConnectionsListsAll(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	reader := &fakeReader{all: []connections.Connection{
		{ID: "conn_a", AuthConfigID: "googlesheets", Status: connections.StatusActive, AccountEmail: "a@example.com", CreatedAt: created},
		{ID: "conn_b", AuthConfigID: "gmail", Status: connections.StatusExpired, CreatedAt: created},
	}}
	var out bytes.Buffer

	require.NoError(t, runConnections(context.Background(), &out, reader, connections.DefaultUserID, connectionFlags{}))
	got := out.String()
	assert.Contains(t, got, "AUTH CONFIG")
	assert.Contains(t, got, "conn_a")
	assert.Contains(t, got, "EXPIRED")
	assert.Contains(t, got, "2026-10-01T09:00:00Z")
}

func TestRunConnectionsEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runConnections(context.Background(), &out, &fakeReader{}, "someone", connectionFlags{}))
	assert.Equal(t, "No connections for someone. Run 'sheetmailer auth' to create them.\n", out.String())
}
