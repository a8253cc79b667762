package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfse-ipm/internal/model"
	"github.com/rezonia/nfse-ipm/internal/webservice"
)

var (
	emitTimeout time.Duration
	emitTest    bool
)

var emitCmd = &cobra.Command{
	Use:   "emit [files...]",
	Short: "Issue invoices described in JSON files",
	Long: `Issue one NFS-e per JSON file. Directories are walked for *.json.

Each file holds an invoice request (identifier, facts, provider,
recipient, items). A missing identifier is generated.

Examples:
  nfse emit invoice.json
  nfse emit invoices/ -f json
  nfse emit invoice.json --test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmit,
}

func init() {
	rootCmd.AddCommand(emitCmd)

	emitCmd.Flags().DurationVar(&emitTimeout, "timeout", 2*time.Minute, "Timeout per invoice")
	emitCmd.Flags().BoolVar(&emitTest, "test", false, "Mark invoices as test invoices (env: NFSE_TEST_MODE)")
}

// EmitResult holds the outcome of issuing one file
type EmitResult struct {
	File       string                 `json:"file"`
	Identifier string                 `json:"identifier,omitempty"`
	Response   *model.InvoiceResponse `json:"response,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Retryable  bool                   `json:"retryable,omitempty"`
}

func runEmit(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no invoice files found")
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	printVerbose("Found %d invoice files\n", len(files))

	results := make([]*EmitResult, 0, len(files))
	failed := 0
	for _, file := range files {
		printVerbose("Issuing: %s\n", file)

		result := emitFile(cmd.Context(), client, file)
		results = append(results, result)
		if result.Error != "" {
			failed++
			printVerbose("  Error: %s\n", result.Error)
		}
	}

	err = render(cmd.OutOrStdout(), results, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "FILE\tIDENTIFIER\tNUMBER\tCODE\tERROR")
		fmt.Fprintln(tw, "----\t----------\t------\t----\t-----")
		for _, r := range results {
			var number, code string
			if r.Response != nil {
				number, code = r.Response.Number, r.Response.Code
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.File, r.Identifier, number, code, r.Error)
		}
	})
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d invoices failed", failed, len(results))
	}
	return nil
}

func emitFile(parent context.Context, client *webservice.Client, file string) *EmitResult {
	result := &EmitResult{File: file}

	req, err := readInvoice(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Identifier = req.Identifier
	if emitTest || cfg.NFSe.TestMode {
		req.TestMode = true
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, emitTimeout)
	defer cancel()

	resp, err := client.Emit(ctx, req)
	if err != nil {
		result.Error = err.Error()
		result.Retryable = model.IsRetryable(err)
		return result
	}

	logger.WithField("identifier", req.Identifier).WithField("number", resp.Number).Info("invoice issued")
	result.Response = resp
	return result
}
