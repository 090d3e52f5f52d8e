package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for hitboard.

To load completions:

Bash:
  $ source <(hitboard completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ hitboard completion bash > /etc/bash_completion.d/hitboard
  # macOS:
  $ hitboard completion bash > $(brew --prefix)/etc/bash_completion.d/hitboard

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ hitboard completion zsh > "${fpath[1]}/_hitboard"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ hitboard completion fish | source

  # To load completions for each session, execute once:
  $ hitboard completion fish > ~/.config/fish/completions/hitboard.fish

PowerShell:
  PS> hitboard completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> hitboard completion powershell > hitboard.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
