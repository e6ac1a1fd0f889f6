package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/api/option"

	"github.com/teemow/sheetmailer/internal/gmail"
	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/sheets"
)

// Config configures a ServerContext
type Config struct {
	// TokenProvider issues tokens for connection IDs; usually a connections.Manager
	TokenProvider google.TokenSourceProvider

	// SheetsConnection and GmailConnection are used when a tool call names no connection
	SheetsConnection string
	GmailConnection  string

	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger

	// ClientOptions are passed to every Google API client
	ClientOptions []option.ClientOption
}

// ServerContext holds the dependencies shared by the MCP tool handlers
type ServerContext struct {
	ctx           context.Context
	cancel        context.CancelFunc
	cfg           Config
	sheetsClients map[string]*sheets.Client // Maps connection ID to Sheets client
	gmailClients  map[string]*gmail.Client  // Maps connection ID to Gmail client
	mu            sync.RWMutex
	shutdown      bool
}

// NewServerContext creates a new server context.
// Clients are created lazily on first use.
func NewServerContext(ctx context.Context, cfg Config) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		cfg:           cfg,
		sheetsClients: make(map[string]*sheets.Client),
		gmailClients:  make(map[string]*gmail.Client),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Metrics returns the metrics recorder, which may be nil
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.cfg.Metrics
}

// AuditLogger returns the audit logger, which may be nil
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.cfg.AuditLogger
}

// Logger returns the logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.cfg.Logger
}

// HasTokenProvider reports whether clients can be created on demand
func (sc *ServerContext) HasTokenProvider() bool {
	return sc.cfg.TokenProvider != nil
}

// DefaultConnection returns the configured connection for a toolkit
func (sc *ServerContext) DefaultConnection(toolkit string) string {
	switch toolkit {
	case google.ToolkitSheets:
		return sc.cfg.SheetsConnection
	case google.ToolkitGmail:
		return sc.cfg.GmailConnection
	default:
		return ""
	}
}

// SheetsClientForConnection returns the Sheets client for a connection.
// Creates and caches the client if it doesn't exist yet.
func (sc *ServerContext) SheetsClientForConnection(connectionID string) (*sheets.Client, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("no Google Sheets connection configured: set GOOGLE_SHEETS_CONNECTION_ID or run 'sheetmailer auth'")
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.sheetsClients[connectionID]; ok {
		return client, nil
	}
	if sc.cfg.TokenProvider == nil {
		return nil, fmt.Errorf("no token provider for connection %s", connectionID)
	}

	client, err := sheets.NewClientForConnection(sc.ctx, sc.cfg.TokenProvider, connectionID, sc.cfg.ClientOptions...)
	if err != nil {
		return nil, err
	}
	client.WithMetrics(sc.cfg.Metrics)
	sc.sheetsClients[connectionID] = client
	return client, nil
}

// SheetsClient returns the Sheets client for the default connection
func (sc *ServerContext) SheetsClient() (*sheets.Client, error) {
	return sc.SheetsClientForConnection(sc.cfg.SheetsConnection)
}

// SetSheetsClientForConnection sets the Sheets client for a connection
func (sc *ServerContext) SetSheetsClientForConnection(connectionID string, client *sheets.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sheetsClients[connectionID] = client
}

// GmailClientForConnection returns the Gmail client for a connection.
// Creates and caches the client if it doesn't exist yet.
func (sc *ServerContext) GmailClientForConnection(connectionID string) (*gmail.Client, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("no Gmail connection configured: set GOOGLE_MAIL_CONNECTION_ID or run 'sheetmailer auth'")
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.gmailClients[connectionID]; ok {
		return client, nil
	}
	if sc.cfg.TokenProvider == nil {
		return nil, fmt.Errorf("no token provider for connection %s", connectionID)
	}

	client, err := gmail.NewClientForConnection(sc.ctx, sc.cfg.TokenProvider, connectionID, sc.cfg.ClientOptions...)
	if err != nil {
		return nil, err
	}
	client.WithMetrics(sc.cfg.Metrics)
	sc.gmailClients[connectionID] = client
	return client, nil
}

// GmailClient returns the Gmail client for the default connection
func (sc *ServerContext) GmailClient() (*gmail.Client, error) {
	return sc.GmailClientForConnection(sc.cfg.GmailConnection)
}

// SetGmailClientForConnection sets the Gmail client for a connection
func (sc *ServerContext) SetGmailClientForConnection(connectionID string, client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClients[connectionID] = client
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
