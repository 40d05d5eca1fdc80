package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// newCompletionCmd creates the completion command for generating shell completions.
func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for jstackviz.

To load completions:

Bash:
  $ source <(jstackviz completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ jstackviz completion bash > /etc/bash_completion.d/jstackviz
  # macOS:
  $ jstackviz completion bash > $(brew --prefix)/etc/bash_completion.d/jstackviz

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ jstackviz completion zsh > "${fpath[1]}/_jstackviz"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ jstackviz completion fish | source

  # To load completions for each session, execute once:
  $ jstackviz completion fish > ~/.config/fish/completions/jstackviz.fish

PowerShell:
  PS> jstackviz completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> jstackviz completion powershell > jstackviz.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
