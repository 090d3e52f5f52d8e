package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitboard/packages/server"
)

// ShutdownTimeout bounds in-flight runs and notifiers on shutdown
const ShutdownTimeout = 30 * time.Second

var (
	portFlag      int
	publicDirFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run API, run history and reports over HTTP",
	Long: `Start the HTTP gateway.

Endpoints:
  POST /run-tests        run the collection once and record the result
  GET  /get-reports      report file names, newest first
  GET  /get-run-history  run history, newest first
  GET  /get-run-stats    pass rate and duration percentiles
  GET  /metrics          the same statistics for Prometheus
  GET  /reports/<name>   rendered HTML reports

Examples:
  hitboard serve
  hitboard serve --port 8080 --public ./dashboard
  PORT=8080 POSTMAN_API_KEY=... hitboard serve`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Port to listen on (default from config or PORT, 3000)")
	serveCmd.Flags().StringVar(&publicDirFlag, "public", "", "Directory with dashboard assets (default from config)")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}
	if publicDirFlag != "" {
		cfg.Server.PublicDir = publicDirFlag
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}

	srv := server.New(a.orch, a.ledger,
		server.WithReportsDir(cfg.Storage.ReportsDir),
		server.WithPublicDir(cfg.Server.PublicDir),
		server.WithRunRateLimit(cfg.Server.RunRateLimit, cfg.Server.RunBurst),
		server.WithLogger(logger),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Server running at http://localhost:%d\n", cfg.Server.Port)

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}

	if serveErr != nil {
		return withExitCode(ExitRunError, fmt.Errorf("server failed: %w", serveErr))
	}
	return nil
}
