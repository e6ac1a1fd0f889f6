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
	"github.com/teemow/sheetmailer/internal/google"
)

type fakeConnector struct {
	active    map[string][]connections.Connection
	waitErr   map[string]error
	initiated []string
}

func (f *fakeConnector) List(_ context.Context, _ string, filter connections.Filter) ([]connections.Connection, error) {
	return f.active[filter.Toolkit], nil
}

func (f *fakeConnector) Initiate(_ context.Context, _ string, authConfigID string, opts connections.InitiateOptions) (*connections.Request, error) {
	if !opts.AllowMultiple {
		return nil, fmt.Errorf("expected AllowMultiple")
	}
	f.initiated = append(f.initiated, authConfigID)
	id := "conn_" + authConfigID
	return &connections.Request{ID: id, RedirectURL: "https://accounts.example.com/auth?state=" + id}, nil
}

func (f *fakeConnector) Wait(_ context.Context, id string, _ time.Duration) (connections.Connection, error) {
	if err := f.waitErr[id]; err != nil {
		return connections.Connection{}, err
	}
	return connections.Connection{ID: id, Status: connections.StatusActive, AccountEmail: "me@example.com"}, nil
}

func TestRunAuthReusesAndInitiates(t *testing.T) {
	fake := &fakeConnector{
		active: map[string][]connections.Connection{
			google.ToolkitSheets: {{ID: "conn_existing", Status: connections.StatusActive}},
		},
	}
	var out bytes.Buffer

	require.NoError(t, runAuth(context.Background(), &out, fake, connections.DefaultUserID, time.Second))

	assert.Equal(t, []string{connections.AuthConfigGmail}, fake.initiated)
	got := out.String()
	assert.Contains(t, got, "Using existing connection: conn_existing")
	assert.Contains(t, got, "Please visit: https://accounts.example.com/auth?state=conn_gmail")
	assert.Contains(t, got, "Gmail authenticated successfully as me@example.com")
	assert.Contains(t, got, "GOOGLE_SHEETS_CONNECTION_ID=conn_existing")
	assert.Contains(t, got, "GOOGLE_MAIL_CONNECTION_ID=conn_gmail")
}

func TestRunAuthTimeoutIsNotFatal(t *testing.T) {
	fake := &fakeConnector{
		waitErr: map[string]error{
			"conn_googlesheets": fmt.Errorf("%w after 1s", connections.ErrAuthTimeout),
		},
	}
	var out bytes.Buffer

	require.NoError(t, runAuth(context.Background(), &out, fake, connections.DefaultUserID, time.Second))
	assert.Contains(t, out.String(), "Timeout. Connection ID: conn_googlesheets")
	assert.Contains(t, out.String(), "Run 'sheetmailer auth' again")
}

func TestRunAuthFailure(t *testing.T) {
	fake := &fakeConnector{
		waitErr: map[string]error{"conn_googlesheets": fmt.Errorf("consent denied")},
	}

	err := runAuth(context.Background(), &bytes.Buffer{}, fake, connections.DefaultUserID, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Google Sheets authorization failed")
	assert.Equal(t, []string{connections.AuthConfigSheets}, fake.initiated)
}

func TestAuthConfigForToolkit(t *testing.T) {
	t.Setenv("GOOGLE_MAIL_AUTH_CONFIG_ID", "ac_mail")
	assert.Equal(t, "ac_mail", authConfigForToolkit(google.ToolkitGmail))
	assert.Equal(t, connections.AuthConfigSheets, authConfigForToolkit(google.ToolkitSheets))
}
