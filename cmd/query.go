package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/llm"
	"github.com/teemow/sheetmailer/internal/platform"
	"github.com/teemow/sheetmailer/internal/tools/registry"
	"github.com/teemow/sheetmailer/internal/workflow"
)

// queryOptions holds the flags of the query command.
type queryOptions struct {
	spreadsheetID string
	emailTo       string
	timeout       time.Duration

	provider string
	model    string

	maxIterations int
	parallelTools int

	toolsURL               string
	allowBroadMailFallback bool

	connections connectionFlags
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask questions about the orders sheet and email the answers",
		Long: `Ask natural-language questions about the orders spreadsheet. Each question
is answered by a language model that reads the sheet through the Sheets tools
and sends the answer to EMAIL_TO with the Gmail tools.

Without arguments an interactive prompt is started; type exit, quit or q to
leave. With arguments the joined arguments are answered as one question.

Configuration (flags override environment variables):
  SPREADSHEET_ID, EMAIL_TO, QUERY_TIMEOUT
  LLM_PROVIDER (openai or gemini), OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL,
  GEMINI_API_KEY, GEMINI_MODEL
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_SHEETS_CONNECTION_ID,
  GOOGLE_MAIL_CONNECTION_ID
  TOOLS_URL to use a remote MCP tool server instead of the built-in tools
  TOOLS_READ_SPREADSHEET, TOOLS_SEND_EMAIL to map remote tool names`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.spreadsheetID, "spreadsheet-id", "", "Spreadsheet to query. Can also use SPREADSHEET_ID env var.")
	cmd.Flags().StringVar(&opts.emailTo, "email-to", "", "Recipient of the answers. Can also use EMAIL_TO env var.")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Timeout per question (default 5m). Can also use QUERY_TIMEOUT env var.")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "LLM provider: openai or gemini. Can also use LLM_PROVIDER env var.")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name. Can also use OPENAI_MODEL or GEMINI_MODEL env var.")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", agent.DefaultCeiling, "Maximum model activations per question")
	cmd.Flags().IntVar(&opts.parallelTools, "parallel-tools", 1, "Tool calls of one model turn executed concurrently")
	cmd.Flags().StringVar(&opts.toolsURL, "tools-url", "", "Streamable HTTP URL of a remote MCP tool server. Can also use TOOLS_URL env var.")
	cmd.Flags().BoolVar(&opts.allowBroadMailFallback, "allow-broad-mail-fallback", false, "Offer every mail tool when no send tool can be identified")
	cmd.Flags().StringVar(&opts.connections.sheets, "sheets-connection", "", "Sheets connection ID. Can also use GOOGLE_SHEETS_CONNECTION_ID env var.")
	cmd.Flags().StringVar(&opts.connections.gmail, "gmail-connection", "", "Gmail connection ID. Can also use GOOGLE_MAIL_CONNECTION_ID env var.")

	return cmd
}

func runQuery(cmd *cobra.Command, opts queryOptions, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := workflow.SettingsFromEnv()
	if err != nil {
		return err
	}
	if opts.spreadsheetID != "" {
		settings.SpreadsheetID = opts.spreadsheetID
	}
	if opts.emailTo != "" {
		settings.EmailTo = opts.emailTo
	}
	if opts.timeout > 0 {
		settings.QueryTimeout = opts.timeout
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	provider, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("instrumentation shutdown failed", slog.Any("error", err))
		}
	}()

	reasoner, err := llm.New(ctx, llmConfigFromEnv(opts), provider.Metrics(), slog.Default())
	if err != nil {
		return err
	}

	source, closeSource, err := openToolSource(ctx, opts, provider)
	if err != nil {
		return err
	}
	defer closeSource()

	mapping, err := platform.MappingFromEnv(platform.DefaultMapping())
	if err != nil {
		return err
	}

	runner, err := workflow.NewRunner(ctx, settings, reasoner, source, workflow.Options{
		Selection: platform.SelectOptions{
			Mapping:                mapping,
			AllowBroadMailFallback: opts.allowBroadMailFallback,
		},
		LoopOptions: []agent.Option{
			agent.WithCeiling(opts.maxIterations),
			agent.WithParallelTools(opts.parallelTools),
			agent.WithMetrics(provider.Metrics()),
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		result, err := runner.Run(ctx, strings.Join(args, " "))
		printResult(out, result)
		return err
	}

	interactive := false
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return runREPL(ctx, cmd.InOrStdin(), out, interactive, runner.Run)
}

// llmConfigFromEnv selects the provider and its API key.
func llmConfigFromEnv(opts queryOptions) llm.Config {
	cfg := llm.Config{
		Provider: strings.ToLower(envOr(opts.provider, "LLM_PROVIDER")),
		Model:    opts.model,
	}
	switch cfg.Provider {
	case llm.ProviderGemini:
		cfg.APIKey = envOr(os.Getenv("GEMINI_API_KEY"), "GOOGLE_API_KEY")
		cfg.Model = envOr(cfg.Model, "GEMINI_MODEL")
	default:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
		cfg.Model = envOr(cfg.Model, "OPENAI_MODEL")
	}
	return cfg
}

// openToolSource connects to a remote tool server when one is configured and
// otherwise runs the built-in tools in-process with write tools enabled.
func openToolSource(ctx context.Context, opts queryOptions, provider *instrumentation.Provider) (*platform.Platform, func(), error) {
	platformOpts := []platform.Option{
		platform.WithLogger(slog.Default()),
		platform.WithVersion(version),
	}

	if url := envOr(opts.toolsURL, "TOOLS_URL"); url != "" {
		p, err := platform.NewRemote(ctx, url, platformOpts...)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	}

	manager, err := newConnectionManager(provider.Metrics())
	if err != nil {
		return nil, nil, err
	}
	sc, err := newServerContext(ctx, manager, opts.connections, provider)
	if err != nil {
		_ = manager.Close()
		return nil, nil, err
	}
	mcpSrv, err := registry.NewServer(sc, version, false)
	if err != nil {
		_ = sc.Shutdown()
		_ = manager.Close()
		return nil, nil, err
	}
	p, err := platform.NewInProcess(ctx, mcpSrv, platformOpts...)
	if err != nil {
		_ = sc.Shutdown()
		_ = manager.Close()
		return nil, nil, err
	}
	return p, func() {
		_ = p.Close()
		_ = sc.Shutdown()
		_ = manager.Close()
	}, nil
}

// askFunc answers one question.
type askFunc func(ctx context.Context, query string) (*agent.Result, error)

// runREPL reads questions line by line until EOF or an exit command.
// A failed question is reported and the prompt continues.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, interactive bool, ask askFunc) error {
	if interactive {
		fmt.Fprintln(out, strings.Repeat("=", 60))
		fmt.Fprintln(out, "Query Google Sheets -> Send via Email")
		fmt.Fprintln(out, strings.Repeat("=", 60))
		fmt.Fprintln(out, "Type 'exit' to quit.")
		fmt.Fprintln(out)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if isExitCommand(query) {
			return nil
		}

		fmt.Fprintln(out)
		result, err := ask(ctx, query)
		printResult(out, result)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
		}
		fmt.Fprintln(out)
	}
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// printResult prints the final message and the conversation size.
func printResult(out io.Writer, result *agent.Result) {
	if result == nil {
		return
	}
	if answer := result.Answer(); answer != "" && result.StopReason != agent.StopError {
		fmt.Fprintln(out, answer)
	}
	fmt.Fprintf(out, "Completed with %d messages\n", len(result.Conversation))
}
