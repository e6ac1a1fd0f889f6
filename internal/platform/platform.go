package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/logging"
)

// ClientName identifies this process to MCP servers.
const ClientName = "sheetmailer"

// ErrNotConnected is returned when the platform was closed.
var ErrNotConnected = errors.New("tool platform not connected")

// Option configures a Platform.
type Option func(*Platform)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Platform) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithVersion sets the client version reported during initialization.
func WithVersion(version string) Option {
	return func(p *Platform) {
		if version != "" {
			p.version = version
		}
	}
}

// Platform is an initialized MCP client session.
type Platform struct {
	mu      sync.Mutex
	client  *client.Client
	known   map[string]bool
	logger  *slog.Logger
	version string
	source  string
}

// NewInProcess connects to srv without a network transport.
func NewInProcess(ctx context.Context, srv *mcpserver.MCPServer, opts ...Option) (*Platform, error) {
	c, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-process MCP client: %w", err)
	}
	return connect(ctx, c, "in-process", opts)
}

// NewRemote connects to a streamable HTTP MCP endpoint.
func NewRemote(ctx context.Context, url string, opts ...Option) (*Platform, error) {
	if url == "" {
		return nil, fmt.Errorf("remote tool platform URL is required")
	}
	c, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %s: %w", url, err)
	}
	return connect(ctx, c, url, opts)
}

func connect(ctx context.Context, c *client.Client, source string, opts []Option) (*Platform, error) {
	p := &Platform{
		client:  c,
		logger:  slog.Default(),
		version: "dev",
		source:  source,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    ClientName,
		Version: p.version,
	}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION

	res, err := c.Initialize(ctx, initReq)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	p.logger.Debug("connected to tool platform",
		slog.String("source", source),
		slog.String("server", res.ServerInfo.Name),
		slog.String("server_version", res.ServerInfo.Version))
	return p, nil
}

// Tools lists the tools offered by the server.
func (p *Platform) Tools(ctx context.Context) ([]agent.ToolSpec, error) {
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	if c == nil {
		return nil, ErrNotConnected
	}

	resp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	specs := make([]agent.ToolSpec, 0, len(resp.Tools))
	known := make(map[string]bool, len(resp.Tools))
	for _, tool := range resp.Tools {
		specs = append(specs, agent.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: inputSchema(tool),
		})
		known[tool.Name] = true
	}

	p.mu.Lock()
	p.known = known
	p.mu.Unlock()

	p.logger.Debug("listed tools", slog.String("source", p.source), slog.Int("count", len(specs)))
	return specs, nil
}

// Execute runs one tool call. Tool failures and calls naming a tool the
// server did not list come back as error results for the model; only a
// cancelled context or a closed platform returns an error.
func (p *Platform) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	p.mu.Lock()
	c, known := p.client, p.known
	p.mu.Unlock()
	if c == nil {
		return agent.ToolResult{}, ErrNotConnected
	}

	logger := logging.WithTool(p.logger, call.Name)
	if known != nil && !known[call.Name] {
		logger.Warn("model requested unknown tool")
		return agent.ToolResult{Content: fmt.Sprintf("unknown tool %q", call.Name), IsError: true}, nil
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = call.Name
	req.Params.Arguments = call.Arguments

	res, err := c.CallTool(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return agent.ToolResult{}, ctxErr
		}
		logger.Warn("tool call failed", logging.Err(err))
		return agent.ToolResult{Content: fmt.Sprintf("tool call failed: %v", err), IsError: true}, nil
	}

	result := agent.ToolResult{Content: resultText(res), IsError: res.IsError}
	logger.Debug("tool call completed", slog.Bool("is_error", result.IsError),
		slog.String("content", logging.Truncate(result.Content, 200)))
	return result, nil
}

// Close ends the MCP session.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	p.known = nil
	return err
}

// inputSchema returns the tool's JSON schema as a plain map, honoring a raw
// schema when the server set one.
func inputSchema(tool mcp.Tool) map[string]any {
	data, err := json.Marshal(tool)
	if err != nil {
		return nil
	}
	var decoded struct {
		InputSchema map[string]any `json:"inputSchema"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}
	return decoded.InputSchema
}

// resultText joins the text content of a tool result. Non-text content is
// included as JSON.
func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
			continue
		}
		if data, err := json.Marshal(content); err == nil {
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n")
}

var _ agent.ToolExecutor = (*Platform)(nil)
