package cmd

import (
	"context"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	cancelNumber string
	cancelReason string
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel an issued invoice",
	Long: `Ask the webservice to cancel an invoice of the configured provider.

Example:
  nfse cancel --number 4521 --reason "Emitida em duplicidade"`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)

	cancelCmd.Flags().StringVar(&cancelNumber, "number", "", "Invoice number")
	cancelCmd.Flags().StringVar(&cancelReason, "reason", "", "Cancellation reason")
	_ = cancelCmd.MarkFlagRequired("number")
	_ = cancelCmd.MarkFlagRequired("reason")
}

func runCancel(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := client.Cancel(ctx, cancelNumber, cancelReason)
	if err != nil {
		return err
	}

	logger.WithField("number", cancelNumber).Info("invoice cancelled")
	return render(cmd.OutOrStdout(), resp, func(tw *tabwriter.Writer) {
		responseTable(tw, resp)
	})
}
