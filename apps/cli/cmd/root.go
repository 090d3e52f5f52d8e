package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitboard/packages/core/env"
	"github.com/abdul-hamid-achik/hitboard/packages/output"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	envFileFlag   string
	logLevelFlag  string
	logFormatFlag string
	noColorFlag   bool

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "hitboard",
	Short: "Run Postman collections and keep score.",
	Long: `hitboard runs a Postman collection through newman, keeps a durable
history of every run, and serves the history and the rendered HTML
reports over HTTP for a dashboard.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITBOARD_CONFIG", ""), "Path to config file (env: HITBOARD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", getEnvString("HITBOARD_ENV_FILE", ".env"), "Path to .env file loaded at startup (env: HITBOARD_ENV_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("HITBOARD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error (env: HITBOARD_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", getEnvString("HITBOARD_LOG_FORMAT", "text"), "Log format: text, json (env: HITBOARD_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITBOARD_NO_COLOR", false), "Disable colored output (env: HITBOARD_NO_COLOR)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExitCode(ExitUsageError, err)
	})

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		code := exitCodeFor(err)
		if msg := err.Error(); msg != "" {
			output.NewConsoleFormatter(output.WithWriter(os.Stderr), output.WithNoColor(noColorFlag)).FormatError(err)
		}
		os.Exit(code)
	}
}

// setup runs before every command: it loads the .env file and builds the
// logger shared by all components.
func setup(cmd *cobra.Command, args []string) error {
	l, err := newLogger(cmd.ErrOrStderr(), logLevelFlag, logFormatFlag)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	logger = l

	explicit := cmd.Flags().Changed("env-file") || os.Getenv("HITBOARD_ENV_FILE") != ""
	var keys []string
	if explicit {
		keys, err = env.LoadAndExportDotEnv(envFileFlag)
	} else {
		keys, err = env.LoadOptional(envFileFlag)
	}
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("failed to load env file: %w", err))
	}
	if len(keys) > 0 {
		logger.Debug("loaded env file", "path", envFileFlag, "keys", len(keys))
	}
	return nil
}

// newLogger builds the process logger from the --log-level and
// --log-format flags
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.New("log format must be text or json")
	}
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
