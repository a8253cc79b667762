package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfse-ipm/internal/generator"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate <invoice.json>",
	Short: "Print the request XML of an invoice without sending it",
	Long: `Validate an invoice and write the ISO-8859-1 document that emit would
upload. Nothing is sent and no credentials are needed.

Examples:
  nfse generate invoice.json
  nfse generate invoice.json -o nfse.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := readInvoice(args[0])
	if err != nil {
		return err
	}
	if cfg.NFSe.TestMode {
		req.TestMode = true
	}

	doc, err := generator.GenerateInvoiceXML(req)
	if err != nil {
		return err
	}
	payload, err := generator.Encode(doc)
	if err != nil {
		return err
	}

	if generateOutput == "" {
		_, err = cmd.OutOrStdout().Write(payload)
		return err
	}

	if err := os.WriteFile(generateOutput, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	printVerbose("Wrote %s (%d bytes)\n", generateOutput, len(payload))
	return nil
}
