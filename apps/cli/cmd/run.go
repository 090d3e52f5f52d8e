package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/abdul-hamid-achik/hitboard/packages/output"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	openFlag    bool
	watchFlag   bool
	outputFlag  string
	verboseFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collection once and record the result",
	Long: `Run the configured Postman collection once through newman, write the
HTML report and append the result to the run history.

Examples:
  hitboard run
  hitboard run --open
  hitboard run --watch
  HITBOARD_SOURCE=remote POSTMAN_API_KEY=... hitboard run -o json`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

func init() {
	runCmd.Flags().BoolVar(&openFlag, "open", getEnvBool("HITBOARD_OPEN", false), "Open the report in the browser when the run finishes (env: HITBOARD_OPEN)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the local collection or environment changes")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITBOARD_OUTPUT", "console"), "Output format: console, json (env: HITBOARD_OUTPUT)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := output.New(outputFlag,
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(verboseFlag),
		output.WithNoColor(noColorFlag),
	)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{openBrowser: openFlag})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	runOnce := func() (failed int, err error) {
		out, err := a.orch.Run(ctx)
		if err != nil {
			return 0, err
		}
		if err := formatter.FormatRun(out); err != nil {
			return 0, err
		}
		return out.Record.Failed, nil
	}

	failed, err := runOnce()
	if !watchFlag {
		if err != nil {
			return err
		}
		if failed > 0 {
			return withExitCode(ExitTestFailure, fmt.Errorf("%d test(s) failed", failed))
		}
		return nil
	}
	if err != nil {
		formatter.FormatError(err)
	}

	return watch(ctx, cmd, cfg, formatter, func() {
		if _, err := runOnce(); err != nil {
			formatter.FormatError(err)
		}
	})
}

// watch re-runs whenever the local collection or environment is written
func watch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, formatter output.Formatter, rerun func()) error {
	if !strings.EqualFold(cfg.Source.Mode, config.ModeLocal) {
		return withExitCode(ExitUsageError, errors.New("--watch needs the local source"))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories so editors that replace files are still seen.
	watched := make(map[string]bool)
	targets := make(map[string]bool)
	for _, file := range []string{cfg.Source.Local.Collection, cfg.Source.Local.Environment} {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			formatter.FormatError(fmt.Errorf("failed to watch %s: %w", dir, err))
			continue
		}
		watched[dir] = true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce timer for rapid file changes
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			abs, _ := filepath.Abs(event.Name)
			if !targets[abs] || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-running tests...\n", name)
				rerun()
				fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}
