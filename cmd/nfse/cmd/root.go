package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rezonia/nfse-ipm/internal/config"
	"github.com/rezonia/nfse-ipm/internal/webservice"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	envFile      string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nfse",
	Short: "Issue, query and cancel NFS-e through the IPM/AtendeNet webservice",
	Long: `nfse is a CLI for the IPM/AtendeNet municipal NFS-e webservice.

It builds the ISO-8859-1 request documents, uploads them with the account
credentials and reports the webservice reply.

Credentials are read from the environment (or a .env file):
  NFSE_LOGIN           CPF/CNPJ of the provider
  NFSE_PASSWORD        webservice password
  NFSE_MUNICIPAL_CODE  TOM code of the municipality
  NFSE_URL             upload endpoint (default: IPM datacenter)

Examples:
  # Issue invoices described in JSON files
  nfse emit invoice.json

  # Look an invoice up
  nfse query --number 4521

  # Cancel it
  nfse cancel --number 4521 --reason "Emitida em duplicidade"

  # Print the request XML without sending it
  nfse generate invoice.json`,
	Version:           version,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load settings from this file instead of .env")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return err
	}

	logger = config.NewLogger(cfg.Logging, os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// newClient builds a webservice client from the loaded configuration
func newClient() (*webservice.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return webservice.New(cfg.ClientConfig(), webservice.WithLogger(logger)), nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
