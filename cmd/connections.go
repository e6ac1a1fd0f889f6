package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmailer/internal/connections"
)

func newConnectionsCmd() *cobra.Command {
	var (
		userID string
		conns  connectionFlags
	)

	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Show the status of the Google connections",
		Long: `Show the status and account of the configured connections.

When GOOGLE_SHEETS_CONNECTION_ID or GOOGLE_MAIL_CONNECTION_ID (or the matching
flags) are set, those connections are checked. Otherwise every connection of
the user is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newConnectionManager(nil)
			if err != nil {
				return err
			}
			defer func() { _ = manager.Close() }()

			conns.sheets = envOr(conns.sheets, envSheetsConnection)
			conns.gmail = envOr(conns.gmail, envGmailConnection)
			return runConnections(cmd.Context(), cmd.OutOrStdout(), manager, userID, conns)
		},
	}

	cmd.Flags().StringVar(&userID, "user", connections.DefaultUserID, "User whose connections are listed")
	cmd.Flags().StringVar(&conns.sheets, "sheets-connection", "", "Sheets connection ID to check. Can also use GOOGLE_SHEETS_CONNECTION_ID env var.")
	cmd.Flags().StringVar(&conns.gmail, "gmail-connection", "", "Gmail connection ID to check. Can also use GOOGLE_MAIL_CONNECTION_ID env var.")

	return cmd
}

// connectionReader is the part of connections.Manager the command reads.
type connectionReader interface {
	Get(ctx context.Context, id string) (connections.Connection, error)
	List(ctx context.Context, userID string, filter connections.Filter) ([]connections.Connection, error)
}

func runConnections(ctx context.Context, out io.Writer, m connectionReader, userID string, conns connectionFlags) error {
	if conns.sheets == "" && conns.gmail == "" {
		return listConnections(ctx, out, m, userID)
	}

	fmt.Fprintln(out, "Checking connection details...")
	checks := []struct {
		label string
		id    string
		hint  bool
	}{
		{label: "Google Sheets", id: conns.sheets, hint: true},
		{label: "Gmail", id: conns.gmail},
	}
	for _, check := range checks {
		if check.id == "" {
			continue
		}
		fmt.Fprintf(out, "\n%s Connection: %s\n", check.label, check.id)
		conn, err := m.Get(ctx, check.id)
		if err != nil {
			if errors.Is(err, connections.ErrNotFound) {
				fmt.Fprintln(out, "   Status: NOT FOUND")
				continue
			}
			return fmt.Errorf("failed to get %s connection: %w", check.label, err)
		}
		fmt.Fprintf(out, "   Status: %s\n", conn.Status)
		email := conn.AccountEmail
		if email == "" {
			email = "unknown"
		}
		fmt.Fprintf(out, "   Email: %s\n", email)
		if check.hint && conn.AccountEmail != "" {
			fmt.Fprintf(out, "\nMake sure the spreadsheet is shared with: %s\n", conn.AccountEmail)
		}
	}
	return nil
}

func listConnections(ctx context.Context, out io.Writer, m connectionReader, userID string) error {
	all, err := m.List(ctx, userID, connections.Filter{})
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	if len(all) == 0 {
		fmt.Fprintf(out, "No connections for %s. Run 'sheetmailer auth' to create them.\n", userID)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAUTH CONFIG\tSTATUS\tEMAIL\tCREATED")
	for _, c := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.AuthConfigID, c.Status, c.AccountEmail, c.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
