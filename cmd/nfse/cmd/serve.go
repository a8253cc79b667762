package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfse-ipm/internal/server"
)

var (
	serverAddr  string
	serverDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP gateway in front of the NFS-e webservice.

The API provides endpoints for:
  - POST /api/v1/nfse                 - Issue an invoice
  - POST /api/v1/nfse/xml             - Generate the request XML only
  - GET  /api/v1/nfse/:number         - Query by number
  - GET  /api/v1/nfse?start=&end=     - Query by period
  - POST /api/v1/nfse/:number/cancel  - Cancel an invoice
  - GET  /health                      - Health check

Examples:
  # Start server on the configured address (env: SERVER_ADDRESS)
  nfse serve

  # Start on a custom port in debug mode
  nfse serve --address :9090 --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (env: SERVER_ADDRESS)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode (env: SERVER_DEBUG)")
}

func runServe(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	config := &server.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Debug:        cfg.Server.Debug || serverDebug,
		TestMode:     cfg.NFSe.TestMode,
	}
	if serverAddr != "" {
		config.Address = serverAddr
	}

	srv := &http.Server{
		Addr:         config.Address,
		Handler:      server.NewServer(config, client, logger).Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("address", config.Address).WithField("test_mode", config.TestMode).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}
