package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfse-ipm/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), "{}")
	writeFile(t, filepath.Join(dir, "batch", "b.json"), "{}")
	writeFile(t, filepath.Join(dir, "batch", "notes.txt"), "x")

	files, err := collectFiles([]string{filepath.Join(dir, "a.json"), filepath.Join(dir, "batch")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "batch", "b.json")}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing.json")})
	assert.Error(t, err)
}

func TestReadInvoice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.json")
	writeFile(t, path, `{"facts": {"generation_date": "15/10/2026", "total_value": 150.5}, "items": [{"taxable_value": "150.50"}]}`)

	req, err := readInvoice(path)
	require.NoError(t, err)

	_, err = uuid.Parse(req.Identifier)
	assert.NoError(t, err)
	assert.True(t, req.Facts.TotalValue.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, "15/10/2026", req.Facts.GenerationDate)

	writeFile(t, path, `{"identifier": "fat-9"}`)
	req, err = readInvoice(path)
	require.NoError(t, err)
	assert.Equal(t, "fat-9", req.Identifier)

	writeFile(t, path, `{`)
	_, err = readInvoice(path)
	assert.Error(t, err)
}

func TestInvoiceWarnings(t *testing.T) {
	req := model.InvoiceRequest{
		Facts:     model.InvoiceFacts{TotalValue: decimal.NewFromInt(100)},
		Recipient: model.Recipient{Type: "X"},
		Items: []model.ServiceItem{
			{TaxSituation: model.TaxFullyTaxed, TaxableValue: decimal.NewFromInt(60)},
			{TaxSituation: "9", TaxableValue: decimal.NewFromInt(30)},
		},
	}

	warnings := invoiceWarnings(req)
	assert.Equal(t, []string{
		`unknown recipient type "X"`,
		`items[1]: unknown tax situation "9"`,
		"items add up to 90.00 but total is 100.00",
	}, warnings)

	req.Recipient.Type = model.PersonCompany
	req.Items[1].TaxSituation = model.TaxExempt
	req.Items[1].TaxableValue = decimal.NewFromInt(40)
	assert.Empty(t, invoiceWarnings(req))
}
