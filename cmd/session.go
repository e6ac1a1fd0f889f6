package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/sheetmailer/internal/connections"
	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/server"
)

// Environment variables naming the connections the tools use.
const (
	envSheetsConnection = "GOOGLE_SHEETS_CONNECTION_ID"
	envGmailConnection  = "GOOGLE_MAIL_CONNECTION_ID"
)

// newInstrumentation creates the OpenTelemetry provider for a command.
func newInstrumentation(ctx context.Context) (*instrumentation.Provider, error) {
	cfg := instrumentation.DefaultConfig()
	cfg.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, nil
}

// newConnectionManager builds the connection manager from GOOGLE_CLIENT_ID
// and GOOGLE_CLIENT_SECRET.
func newConnectionManager(metrics *instrumentation.Metrics) (*connections.Manager, error) {
	creds, err := google.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return connections.NewManager(creds,
		connections.WithLogger(slog.Default()),
		connections.WithMetrics(metrics),
	), nil
}

// resolveConnection returns explicit when set, otherwise the first ACTIVE
// connection of the toolkit. An empty result is not an error; tools report
// the missing connection when called.
func resolveConnection(ctx context.Context, m *connections.Manager, explicit, toolkit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	active, err := m.List(ctx, connections.DefaultUserID, connections.Filter{
		Toolkit:  toolkit,
		Statuses: []connections.Status{connections.StatusActive},
	})
	if err != nil {
		return "", fmt.Errorf("failed to list %s connections: %w", toolkit, err)
	}
	if len(active) == 0 {
		slog.Warn("no active connection, run 'sheetmailer auth'", slog.String("toolkit", toolkit))
		return "", nil
	}
	return active[0].ID, nil
}

// connectionFlags are the connection overrides shared by several commands.
type connectionFlags struct {
	sheets string
	gmail  string
}

// newServerContext wires the tool handlers to the connection manager.
func newServerContext(ctx context.Context, m *connections.Manager, conns connectionFlags, provider *instrumentation.Provider) (*server.ServerContext, error) {
	sheetsID, err := resolveConnection(ctx, m, envOr(conns.sheets, envSheetsConnection), google.ToolkitSheets)
	if err != nil {
		return nil, err
	}
	gmailID, err := resolveConnection(ctx, m, envOr(conns.gmail, envGmailConnection), google.ToolkitGmail)
	if err != nil {
		return nil, err
	}

	cfg := server.Config{
		TokenProvider:    m,
		SheetsConnection: sheetsID,
		GmailConnection:  gmailID,
		Logger:           slog.Default(),
	}
	if provider.Enabled() {
		cfg.Metrics = provider.Metrics()
		cfg.AuditLogger = instrumentation.NewAuditLoggerWithConfig(slog.Default(), provider.Config().AuditLogging)
	}
	return server.NewServerContext(ctx, cfg), nil
}
