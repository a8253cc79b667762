package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfse-ipm/internal/model"
)

var (
	queryNumber string
	queryStart  string
	queryEnd    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Look invoices up by number or by period",
	Long: `Query the invoices of the configured provider.

Examples:
  nfse query --number 4521
  nfse query --start 01/10/2026 --end 15/10/2026 -f json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryNumber, "number", "", "Invoice number")
	queryCmd.Flags().StringVar(&queryStart, "start", "", "Period start (DD/MM/YYYY)")
	queryCmd.Flags().StringVar(&queryEnd, "end", "", "Period end (DD/MM/YYYY)")
	queryCmd.MarkFlagsMutuallyExclusive("number", "start")
	queryCmd.MarkFlagsMutuallyExclusive("number", "end")
	queryCmd.MarkFlagsRequiredTogether("start", "end")
	queryCmd.MarkFlagsOneRequired("number", "start")
}

func runQuery(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var records []model.InvoiceRecord
	if queryNumber != "" {
		rec, err := client.QueryByNumber(ctx, queryNumber)
		if err != nil {
			return err
		}
		records = append(records, *rec)
	} else {
		records, err = client.QueryByPeriod(ctx, queryStart, queryEnd)
		if err != nil {
			return err
		}
		printVerbose("Found %d invoices\n", len(records))
	}

	return render(cmd.OutOrStdout(), records, func(tw *tabwriter.Writer) {
		if len(records) == 0 {
			fmt.Fprintln(tw, "No invoices in the period")
			return
		}
		recordTable(tw, records)
	})
}
