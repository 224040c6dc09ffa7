package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/rulebench/pkg/results"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for rulebench.

To load completions:

Bash:
  $ source <(rulebench completion bash)
  # To load permanently:
  $ rulebench completion bash > /etc/bash_completion.d/rulebench

Zsh:
  $ rulebench completion zsh > "${fpath[1]}/_rulebench"
  $ compinit

Fish:
  $ rulebench completion fish | source
  # To load permanently:
  $ rulebench completion fish > ~/.config/fish/completions/rulebench.fish

PowerShell:
  PS> rulebench completion powershell | Out-String | Invoke-Expression
  # To load permanently, add to your PowerShell profile
`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	runsShowCmd.ValidArgsFunction = completeRunIDs
	exportCmd.ValidArgsFunction = completeRunIDs
}

// completeRunIDs completes the IDs of the newest stored runs.
func completeRunIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	store, err := newStore(&cfg.Storage)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), &results.RunQuery{Limit: 50})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var ids []string
	for _, r := range runs {
		if strings.HasPrefix(r.ID, toComplete) {
			ids = append(ids, r.ID+"\t"+r.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
