package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/tools/registry"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions holds the flags of the serve command.
type serveOptions struct {
	transport        string
	httpAddr         string
	yolo             bool
	disableStreaming bool
	metrics          MetricsConfig
	connections      connectionFlags
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide the Google Sheets
and Gmail tools to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Safety Mode:
  By default, the server operates in read-only mode, providing only the Sheets
  read tools. Use --yolo to enable write operations (email sending, drafts).

Connections:
  Tools use the connections created with 'sheetmailer auth'. A tool call may
  name a connection; otherwise GOOGLE_SHEETS_CONNECTION_ID and
  GOOGLE_MAIL_CONNECTION_ID, or the first active connection, are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-enabled") {
				if v := os.Getenv("METRICS_ENABLED"); v != "" {
					opts.metrics.Enabled = v == "true"
				}
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.metrics.Addr = addr
				}
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (email sending, drafts). Default is read-only mode.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().StringVar(&opts.connections.sheets, "sheets-connection", "", "Default Sheets connection ID. Can also use GOOGLE_SHEETS_CONNECTION_ID env var.")
	cmd.Flags().StringVar(&opts.connections.gmail, "gmail-connection", "", "Default Gmail connection ID. Can also use GOOGLE_MAIL_CONNECTION_ID env var.")

	return cmd
}

func runServe(parent context.Context, opts serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch opts.transport {
	case "stdio", "streamable-http":
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	provider, err := newInstrumentation(shutdownCtx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("instrumentation shutdown failed", slog.Any("error", err))
		}
	}()

	manager, err := newConnectionManager(provider.Metrics())
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	serverContext, err := newServerContext(shutdownCtx, manager, opts.connections, provider)
	if err != nil {
		return err
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("server context shutdown failed", slog.Any("error", err))
		}
	}()

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	if readOnly {
		slog.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		slog.Warn("starting server with WRITE operations enabled (--yolo flag is set)")
	}

	mcpSrv, err := registry.NewServer(serverContext, version, readOnly)
	if err != nil {
		return err
	}

	if opts.transport == "stdio" {
		return runStdioServer(mcpSrv)
	}

	health := server.NewHealthChecker(serverContext)

	// Start metrics server if enabled and not in stdio mode
	if opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Health:                  health,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Warn("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	fmt.Printf("Starting sheetmailer MCP server with %s transport on %s...\n", opts.transport, opts.httpAddr)
	return runStreamableHTTPServer(shutdownCtx, mcpSrv, health, provider.Metrics(), opts.httpAddr, opts.disableStreaming)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// newHTTPHandler mounts the MCP endpoint next to the health endpoints.
// Requests to the MCP endpoint are recorded in metrics.
func newHTTPHandler(mcpSrv *mcpserver.MCPServer, health *server.HealthChecker, metrics *instrumentation.Metrics, disableStreaming bool) http.Handler {
	httpOpts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
	}
	if disableStreaming {
		httpOpts = append(httpOpts, mcpserver.WithDisableStreaming(true))
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", recordRequests(metrics, "/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv, httpOpts...)))
	health.RegisterHealthEndpoints(mux)
	return mux
}

// recordRequests reports method, status and duration of every request
// served by next. The route is passed in so that query strings and session
// paths never become label values.
func recordRequests(metrics *instrumentation.Metrics, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, route, m.Code, m.Duration)
	})
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, health *server.HealthChecker, metrics *instrumentation.Metrics, addr string, disableStreaming bool) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(mcpSrv, health, metrics, disableStreaming),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()
	health.SetReady(true)

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	fmt.Println("HTTP server stopped")
	return nil
}
