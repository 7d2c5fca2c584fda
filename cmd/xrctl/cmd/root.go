// Package cmd implements the xrctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crossrealm/xrealmd/internal/version"
	"github.com/crossrealm/xrealmd/pkg/store"
)

var (
	// Global flags
	outputFormat string
	dbPath       string
	configPath   string

	// Shared store instance
	policyStore *store.Store
)

var rootCmd = &cobra.Command{
	Use:   "xrctl",
	Short: "Manage cross-realm authorization policy",
	Long: `xrctl manages the trust edge rules consulted by xrealmd.

Trust edges are named TARGET@HOP, the realms of the krbtgt principal
krbtgt/TARGET@HOP presented with a cross-realm request. Rules grant
access per origin realm (@REALM) or per client principal.`,
	Version:      version.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip store initialization for completion commands
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}

		path := dbPath
		if path == "" {
			path = store.DefaultPath()
		}

		var err error
		policyStore, err = store.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if policyStore != nil {
			policyStore.Close()
		}
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for xrctl.

To load completions:

Bash:
  # Add to ~/.bashrc:
  source <(xrctl completion bash)

Zsh:
  # Add to ~/.zshrc:
  source <(xrctl completion zsh)

Fish:
  # Add to ~/.config/fish/completions/:
  xrctl completion fish > ~/.config/fish/completions/xrctl.fish

PowerShell:
  # Add to your PowerShell profile:
  xrctl completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unknown shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Daemon config path (for decide; default: /etc/xrealmd/xrealmd.yaml)")
	rootCmd.AddCommand(completionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(data interface{}) error {
	switch outputFormat {
	case "json":
		return outputJSON(data)
	case "yaml":
		return outputYAML(data)
	default:
		// Table format is handled by each command
		return nil
	}
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
