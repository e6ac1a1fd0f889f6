package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/sheetmailer/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

// rootCmd represents the base command for the sheetmailer application
var rootCmd = &cobra.Command{
	Use:   "sheetmailer",
	Short: "Answers questions about a Google Sheet and emails the result",
	Long: `sheetmailer reads an orders spreadsheet, answers a natural-language
question about it with a tool-calling language model and sends the answer
by Gmail.

It can run as:
  - An interactive query prompt (default)
  - An MCP (Model Context Protocol) server exposing the Sheets and Gmail tools`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(".env.local", ".env"); err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sheetmailer version %s\n" .Version}}`)

	// If no subcommand is provided, run the query command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "query")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error. Can also use LOG_LEVEL env var.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json. Can also use LOG_FORMAT env var.")

	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConnectionsCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadDotEnv loads the given files in order. Earlier files win and the
// process environment wins over all of them. Missing files are skipped.
func loadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// setupLogging installs the default logger. Logs go to stderr so stdout stays
// free for answers and the stdio MCP transport.
func setupLogging() {
	slog.SetDefault(logging.New(os.Stderr, logging.Options{
		Level:  envOr(logLevel, "LOG_LEVEL"),
		Format: envOr(logFormat, "LOG_FORMAT"),
	}))
}

// envOr returns value, or the named environment variable when value is empty.
func envOr(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}
