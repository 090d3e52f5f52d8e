package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/abdul-hamid-achik/hitboard/packages/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the collection without running it",
	Long: `Load and validate the configuration, then resolve the collection and
environment the same way a run would: local files are checked against the
collection and environment schemas, remote ones are fetched from the
Postman API.

Examples:
  hitboard validate
  hitboard validate --config ci/hitboard.yaml`,
	Args: cobra.NoArgs,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Valid: configuration (source %s, ledger %s)\n", cfg.Source.Mode, cfg.Storage.Ledger)

	src, err := cfg.ResolveSource()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	resolver, err := source.New(src,
		source.WithLogger(logger),
		source.WithRemoteOptions(source.WithTimeout(cfg.RemoteTimeout())),
	)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if _, err := resolver.Resolve(cmd.Context()); err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("validation failed: %w", err))
	}

	switch s := src.(type) {
	case config.LocalSource:
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", s.CollectionPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", s.EnvironmentPath)
	case config.RemoteSource:
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: collection %s\n", s.CollectionUID)
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: environment %s\n", s.EnvironmentUID)
	}
	return nil
}
