package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rezonia/nfse-ipm/internal/generator"
	"github.com/rezonia/nfse-ipm/internal/model"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check invoice files locally",
	Long: `Run the local checks of emit on invoice JSON files without sending them.

Checks performed:
  - Required fields present (identifier, dates, taxpayer IDs, items)
  - Positive total and item values
  - Recipient type and tax situation codes (warnings)
  - Items adding up to the total (warning)

With --strict, warnings count as errors.

Examples:
  nfse validate invoice.json
  nfse validate invoices/ --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as errors")
}

// ValidationResult holds the outcome of checking one file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	results := make([]*ValidationResult, 0, len(files))
	allValid := true
	for _, file := range files {
		result := validateFile(file)
		results = append(results, result)
		if !result.Valid {
			allValid = false
		}
	}

	err = render(cmd.OutOrStdout(), results, func(tw *tabwriter.Writer) {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(tw, "✓ %s: VALID\n", r.File)
			} else {
				fmt.Fprintf(tw, "✗ %s: INVALID\n", r.File)
				for _, e := range r.Errors {
					fmt.Fprintf(tw, "  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Fprintf(tw, "  ⚠ %s\n", w)
			}
		}
	})
	if err != nil {
		return err
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(file string) *ValidationResult {
	result := &ValidationResult{
		File:     file,
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	req, err := readInvoice(file)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if violations := generator.Validate(req); len(violations) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, violations...)
	}

	warnings := invoiceWarnings(req)
	if strictValidation && len(warnings) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, warnings...)
	} else {
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result
}

// invoiceWarnings flags values the webservice is likely to reject
func invoiceWarnings(req model.InvoiceRequest) []string {
	var warnings []string

	if req.Recipient.Type != "" && !req.Recipient.Type.Valid() {
		warnings = append(warnings, fmt.Sprintf("unknown recipient type %q", req.Recipient.Type))
	}

	sum := decimal.Zero
	for i, item := range req.Items {
		if !item.TaxSituation.Valid() {
			warnings = append(warnings, fmt.Sprintf("items[%d]: unknown tax situation %q", i, item.TaxSituation))
		}
		sum = sum.Add(item.TaxableValue)
	}

	if len(req.Items) > 0 && !sum.Equal(req.Facts.TotalValue) {
		warnings = append(warnings, fmt.Sprintf("items add up to %s but total is %s",
			sum.StringFixed(2), req.Facts.TotalValue.StringFixed(2)))
	}

	return warnings
}
