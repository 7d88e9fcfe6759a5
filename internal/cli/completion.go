package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "completion [bash|zsh|fish|powershell]",
		Short:   "Generate shell completion scripts",
		GroupID: "utility",
		Long: `Generate a shell completion script for mailprobe.

Bash:
  $ source <(mailprobe completion bash)

Zsh:
  $ mailprobe completion zsh > "${fpath[1]}/_mailprobe"

Fish:
  $ mailprobe completion fish > ~/.config/fish/completions/mailprobe.fish

PowerShell:
  PS> mailprobe completion powershell | Out-String | Invoke-Expression

Start a new shell for the setup to take effect.`,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		DisableFlagsInUseLine: true,
		// buildDeps creates the config file; tab completion must not touch
		// the filesystem.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}
