package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rezonia/nfse-ipm/internal/model"
)

// render writes v to w as JSON, or hands a tabwriter to table
func render(w io.Writer, v interface{}, table func(tw *tabwriter.Writer)) error {
	switch outputFormat {
	case "json":
		return writeJSON(w, v)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func recordTable(tw *tabwriter.Writer, records []model.InvoiceRecord) {
	fmt.Fprintln(tw, "NUMBER\tSERIES\tDATE\tTIME\tVERIFICATION\tLINK")
	fmt.Fprintln(tw, "------\t------\t----\t----\t------------\t----")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Number, r.Series, r.Date, r.Time, r.VerificationCode, r.Link)
	}
}

func responseTable(tw *tabwriter.Writer, resp *model.InvoiceResponse) {
	fmt.Fprintf(tw, "Code:\t%s\n", resp.Code)
	if resp.Number != "" {
		fmt.Fprintf(tw, "Number:\t%s\n", resp.Number)
		fmt.Fprintf(tw, "Series:\t%s\n", resp.Series)
		fmt.Fprintf(tw, "Issued:\t%s %s\n", resp.Date, resp.Time)
		fmt.Fprintf(tw, "Verification:\t%s\n", resp.VerificationCode)
		fmt.Fprintf(tw, "Link:\t%s\n", resp.Link)
	}
}
