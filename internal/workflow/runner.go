package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/logging"
	"github.com/teemow/sheetmailer/internal/platform"
)

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("query is empty")

// Capabilities are what every query needs from the tool platform.
var Capabilities = []platform.Capability{platform.ReadSpreadsheet, platform.SendEmail}

// ToolSource lists and executes tools.
type ToolSource interface {
	agent.ToolExecutor
	Tools(ctx context.Context) ([]agent.ToolSpec, error)
}

// Options configures NewRunner.
type Options struct {
	Selection   platform.SelectOptions
	LoopOptions []agent.Option
	Logger      *slog.Logger
}

// Runner answers questions about the configured sheet.
type Runner struct {
	settings Settings
	loop     *agent.Loop
	logger   *slog.Logger
}

// NewRunner resolves the needed tools on source and prepares the loop.
func NewRunner(ctx context.Context, settings Settings, reasoner agent.Reasoner, source ToolSource, opts Options) (*Runner, error) {
	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Selection.Logger == nil {
		opts.Selection.Logger = logger
	}

	offered, err := source.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tools: %w", err)
	}
	tools, err := platform.Select(offered, Capabilities, opts.Selection)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	logger.Info("tools selected", slog.Any("tools", names), slog.Int("offered", len(offered)))

	loopOpts := append([]agent.Option{agent.WithLogger(logger)}, opts.LoopOptions...)
	return &Runner{
		settings: settings,
		loop:     agent.New(reasoner, source, tools, loopOpts...),
		logger:   logging.WithOperation(logger, "workflow.query"),
	}, nil
}

// Settings returns the effective settings.
func (r *Runner) Settings() Settings {
	return r.settings
}

// Tools returns the tools offered to the model.
func (r *Runner) Tools() []agent.ToolSpec {
	return r.loop.Tools()
}

// Run answers one question in a fresh conversation. On error the returned
// result, when non-nil, holds the conversation up to the failure.
func (r *Runner) Run(ctx context.Context, query string) (*agent.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, r.settings.QueryTimeout)
	defer cancel()

	start := time.Now()
	result, err := r.loop.Run(ctx, agent.NewConversation(BuildPrompt(r.settings, query)))
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("query timed out after %s: %w", r.settings.QueryTimeout, err)
	}

	attrs := []any{
		slog.String("query", logging.Truncate(query, SubjectQueryRunes)),
		slog.Duration("duration", time.Since(start)),
	}
	if result != nil {
		attrs = append(attrs,
			slog.String("stop_reason", string(result.StopReason)),
			slog.Int("messages", len(result.Conversation)))
	}
	if err != nil {
		r.logger.Error("query failed", append(attrs, logging.Err(err))...)
		return result, err
	}
	r.logger.Info("query completed", attrs...)
	return result, nil
}
