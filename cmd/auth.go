package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmailer/internal/connections"
	"github.com/teemow/sheetmailer/internal/google"
)

// DefaultAuthTimeout is how long auth waits for the consent flow.
const DefaultAuthTimeout = 300 * time.Second

func newAuthCmd() *cobra.Command {
	var (
		timeout time.Duration
		userID  string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Connect the Google Sheets and Gmail accounts",
		Long: `Connect the Google Sheets and Gmail accounts used by the query workflow.

For each toolkit an existing ACTIVE connection is reused. Otherwise a new
connection is started: open the printed URL, grant access, and the command
finishes once Google redirects back to the local callback.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET of a Google OAuth client
that allows http://127.0.0.1 redirect URIs (desktop app client).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			provider, err := newInstrumentation(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Shutdown(context.Background()) }()

			manager, err := newConnectionManager(provider.Metrics())
			if err != nil {
				return err
			}
			defer func() { _ = manager.Close() }()

			return runAuth(ctx, cmd.OutOrStdout(), manager, userID, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", DefaultAuthTimeout, "How long to wait for each authorization")
	cmd.Flags().StringVar(&userID, "user", connections.DefaultUserID, "User the connections belong to")

	return cmd
}

// authStep names one toolkit to connect.
type authStep struct {
	label   string
	toolkit string
	env     string
}

var authSteps = []authStep{
	{label: "Google Sheets", toolkit: google.ToolkitSheets, env: envSheetsConnection},
	{label: "Gmail", toolkit: google.ToolkitGmail, env: envGmailConnection},
}

// authConnector is the part of connections.Manager auth needs.
type authConnector interface {
	List(ctx context.Context, userID string, filter connections.Filter) ([]connections.Connection, error)
	Initiate(ctx context.Context, userID, authConfigID string, opts connections.InitiateOptions) (*connections.Request, error)
	Wait(ctx context.Context, id string, timeout time.Duration) (connections.Connection, error)
}

func runAuth(ctx context.Context, out io.Writer, m authConnector, userID string, timeout time.Duration) error {
	ids := make([]string, len(authSteps))
	for i, step := range authSteps {
		id, err := authenticate(ctx, out, m, userID, step, timeout)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	fmt.Fprintln(out, "All accounts processed.")
	for i, step := range authSteps {
		fmt.Fprintf(out, "%s Connection ID: %s\n", step.label, ids[i])
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Save these connection IDs in your .env file:")
	for i, step := range authSteps {
		fmt.Fprintf(out, "  %s=%s\n", step.env, ids[i])
	}
	return nil
}

// authenticate reuses the first ACTIVE connection of the step's toolkit or
// runs the consent flow. A timeout is reported but not fatal; the pending
// connection ID is returned so the user can check it later.
func authenticate(ctx context.Context, out io.Writer, m authConnector, userID string, step authStep, timeout time.Duration) (string, error) {
	fmt.Fprintf(out, "\nChecking %s connection...\n", step.label)

	active, err := m.List(ctx, userID, connections.Filter{
		Toolkit:  step.toolkit,
		Statuses: []connections.Status{connections.StatusActive},
	})
	if err != nil {
		return "", fmt.Errorf("failed to list %s connections: %w", step.label, err)
	}
	if len(active) > 0 {
		fmt.Fprintf(out, "Using existing connection: %s\n", active[0].ID)
		return active[0].ID, nil
	}

	fmt.Fprintf(out, "Creating new %s connection...\n", step.label)
	req, err := m.Initiate(ctx, userID, authConfigForToolkit(step.toolkit), connections.InitiateOptions{AllowMultiple: true})
	if err != nil {
		return "", fmt.Errorf("failed to start %s authorization: %w", step.label, err)
	}

	fmt.Fprintf(out, "Connection ID: %s\n", req.ID)
	fmt.Fprintf(out, "Please visit: %s\n", req.RedirectURL)
	fmt.Fprintf(out, "Waiting for authentication (%s)...\n", timeout)

	conn, err := m.Wait(ctx, req.ID, timeout)
	switch {
	case err == nil:
		fmt.Fprintf(out, "%s authenticated successfully", step.label)
		if conn.AccountEmail != "" {
			fmt.Fprintf(out, " as %s", conn.AccountEmail)
		}
		fmt.Fprintln(out)
		return conn.ID, nil
	case errors.Is(err, connections.ErrAuthTimeout):
		fmt.Fprintf(out, "Timeout. Connection ID: %s\n", req.ID)
		fmt.Fprintln(out, "Run 'sheetmailer auth' again to check whether the connection is active.")
		return req.ID, nil
	default:
		return "", fmt.Errorf("%s authorization failed: %w", step.label, err)
	}
}

// authConfigForToolkit returns the configured auth config ID of a toolkit.
func authConfigForToolkit(toolkit string) string {
	for _, c := range connections.DefaultAuthConfigs() {
		if c.Toolkit == toolkit {
			return c.ID
		}
	}
	return toolkit
}
