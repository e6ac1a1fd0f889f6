package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/orders"
	"github.com/teemow/sheetmailer/internal/sheets"
)

func newSeedCmd() *cobra.Command {
	var (
		count         int
		seed          uint64
		write         bool
		spreadsheetID string
		conns         connectionFlags
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate dummy orders for the orders sheet",
		Long: `Generate dummy e-commerce orders with the columns Date, Order ID, Customer,
Product, Quantity, Unit Price and Total.

By default the orders are only printed. With --write they are written to the
"Orders" tab of the spreadsheet (created if missing), replacing the rows it
covers. Writing needs an ACTIVE Sheets connection (see 'sheetmailer auth').`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewPCG(seed, seed))
			}
			generated := orders.Generate(count, time.Now(), rng)
			printOrders(cmd.OutOrStdout(), generated)

			if !write {
				return nil
			}

			spreadsheetID = envOr(spreadsheetID, "SPREADSHEET_ID")
			if spreadsheetID == "" {
				return fmt.Errorf("spreadsheet ID is required to write orders (use --spreadsheet-id or SPREADSHEET_ID)")
			}

			manager, err := newConnectionManager(nil)
			if err != nil {
				return err
			}
			defer func() { _ = manager.Close() }()

			connectionID, err := resolveConnection(ctx, manager, envOr(conns.sheets, envSheetsConnection), google.ToolkitSheets)
			if err != nil {
				return err
			}
			if connectionID == "" {
				return fmt.Errorf("no active Google Sheets connection, run 'sheetmailer auth' first")
			}

			client, err := sheets.NewClientForConnection(ctx, manager, connectionID)
			if err != nil {
				return err
			}
			return writeOrders(ctx, cmd.OutOrStdout(), client, spreadsheetID, generated)
		},
	}

	cmd.Flags().IntVar(&count, "count", orders.DefaultCount, "Number of orders to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible data (0 picks a random seed)")
	cmd.Flags().BoolVar(&write, "write", false, "Write the orders to the spreadsheet")
	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "Spreadsheet to write to. Can also use SPREADSHEET_ID env var.")
	cmd.Flags().StringVar(&conns.sheets, "sheets-connection", "", "Sheets connection ID. Can also use GOOGLE_SHEETS_CONNECTION_ID env var.")

	return cmd
}

func printOrders(out io.Writer, generated []orders.Order) {
	fmt.Fprintf(out, "Generated %d dummy orders\n", len(generated))
	fmt.Fprintf(out, "Headers: %v\n", orders.Headers)
	if len(generated) > 0 {
		fmt.Fprintf(out, "Sample order: %v\n", generated[0].Row())
	}
}

// sheetWriter is the part of sheets.Client seeding needs.
type sheetWriter interface {
	EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error)
	UpdateValues(ctx context.Context, spreadsheetID, writeRange string, values [][]any) (int64, error)
}

func writeOrders(ctx context.Context, out io.Writer, w sheetWriter, spreadsheetID string, generated []orders.Order) error {
	created, err := w.EnsureSheet(ctx, spreadsheetID, orders.SheetName)
	if err != nil {
		return fmt.Errorf("failed to prepare sheet %q: %w", orders.SheetName, err)
	}
	if created {
		fmt.Fprintf(out, "Created sheet %q\n", orders.SheetName)
	}

	rows := orders.Rows(generated)
	cells, err := w.UpdateValues(ctx, spreadsheetID, orders.Range(len(rows)), rows)
	if err != nil {
		return fmt.Errorf("failed to write orders: %w", err)
	}
	fmt.Fprintf(out, "Wrote %d rows (%d cells) to %s in spreadsheet %s\n", len(rows), cells, orders.SheetName, spreadsheetID)
	return nil
}
