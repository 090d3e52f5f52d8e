package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitboard project",
	Long: `Initialize a new hitboard project in the current directory.

This creates:
  - hitboard.yaml             - Configuration file
  - data/collection.json      - Example Postman collection
  - data/environment.json     - Example Postman environment

Examples:
  hitboard init
  hitboard init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleCollection = `{
  "info": {
    "name": "Example API",
    "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
  },
  "item": [
    {
      "name": "Health check",
      "request": {
        "method": "GET",
        "url": "{{baseUrl}}/health"
      },
      "event": [
        {
          "listen": "test",
          "script": {
            "exec": [
              "pm.test(\"status is 200\", function () {",
              "  pm.response.to.have.status(200);",
              "});"
            ]
          }
        }
      ]
    }
  ]
}
`

const exampleEnvironment = `{
  "name": "dev",
  "values": [
    { "key": "baseUrl", "value": "http://localhost:8080", "enabled": true }
  ]
}
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return scaffold(cmd, cwd)
}

// scaffold writes the example project into dir
func scaffold(cmd *cobra.Command, dir string) error {
	defaults := config.DefaultConfig()

	configFile := filepath.Join(dir, "hitboard.yaml")
	collectionFile := filepath.Join(dir, defaults.Source.Local.Collection)
	environmentFile := filepath.Join(dir, defaults.Source.Local.Environment)

	if !forceInit {
		for _, f := range []string{configFile, collectionFile, environmentFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	configContent := map[string]any{
		"server": map[string]any{
			"port":      defaults.Server.Port,
			"publicDir": defaults.Server.PublicDir,
		},
		"storage": map[string]any{
			"reportsDir":  defaults.Storage.ReportsDir,
			"historyFile": defaults.Storage.HistoryFile,
			"ledger":      defaults.Storage.Ledger,
		},
		"report": map[string]any{
			"title":        defaults.Report.Title,
			"browserTitle": defaults.Report.BrowserTitle,
			"darkTheme":    true,
		},
		"source": map[string]any{
			"mode": config.ModeLocal,
			"local": map[string]string{
				"collection":  defaults.Source.Local.Collection,
				"environment": defaults.Source.Local.Environment,
			},
		},
		"notify": map[string]any{
			"on": defaults.Notify.On,
		},
	}

	configYAML, err := yaml.Marshal(configContent)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFile, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.MkdirAll(filepath.Dir(collectionFile), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	for path, content := range map[string]string{collectionFile: exampleCollection, environmentFile: exampleEnvironment} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitboard project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitboard validate' to check it and 'hitboard run' to execute the example collection.\n")

	return nil
}
