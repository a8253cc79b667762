package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rezonia/nfse-ipm/internal/model"
)

// collectFiles expands globs and directories into invoice JSON files
func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", match)
			}

			if !info.IsDir() {
				files = append(files, match)
				continue
			}

			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

// readInvoice decodes an invoice request, generating an identifier when
// the file has none
func readInvoice(path string) (model.InvoiceRequest, error) {
	var req model.InvoiceRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read file: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("invalid invoice JSON: %w", err)
	}

	if strings.TrimSpace(req.Identifier) == "" {
		req.Identifier = uuid.NewString()
	}
	return req, nil
}
