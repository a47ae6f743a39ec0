package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts for phaserun.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for phaserun.

To install completions:

  Bash (Linux):
    phaserun completion bash | sudo tee /etc/bash_completion.d/phaserun > /dev/null

  Bash (macOS with Homebrew):
    phaserun completion bash > $(brew --prefix)/etc/bash_completion.d/phaserun

  Zsh:
    phaserun completion zsh > "${fpath[1]}/_phaserun"
    # or
    phaserun completion zsh > ~/.zsh/completions/_phaserun

  Fish:
    phaserun completion fish > ~/.config/fish/completions/phaserun.fish

  PowerShell:
    phaserun completion powershell > phaserun.ps1
    # Then add ". phaserun.ps1" to your PowerShell profile`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
