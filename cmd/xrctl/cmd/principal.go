package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/crossrealm/xrealmd/pkg/store"
)

func init() {
	rootCmd.AddCommand(principalCmd)
	principalCmd.AddCommand(principalAddCmd)
	principalCmd.AddCommand(principalListCmd)
	principalCmd.AddCommand(principalRemoveCmd)
}

var principalCmd = &cobra.Command{
	Use:   "principal",
	Short: "Manage registered principal records",
	Long: `Raw access to the principal records that carry attributes. Edge
commands register krbtgt principals automatically; these commands exist
for inspection and cleanup.`,
}

var principalAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a principal",
	Args:  ExactArgsWithUsage(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := policyStore.AddPrincipal(args[0]); err != nil {
			return err
		}
		fmt.Printf("Added principal %s\n", args[0])
		return nil
	},
}

var principalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered principals",
	RunE: func(cmd *cobra.Command, args []string) error {
		principals, err := policyStore.ListPrincipals()
		if err != nil {
			return fmt.Errorf("failed to list principals: %w", err)
		}

		if outputFormat != "table" {
			return formatOutput(principals)
		}

		if len(principals) == 0 {
			fmt.Println("No principals registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCREATED")
		for _, p := range principals {
			fmt.Fprintf(w, "%s\t%s\n", p.Name, p.CreatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var principalRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a principal and its attributes",
	Args:  ExactArgsWithUsage(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := policyStore.RemovePrincipal(args[0])
		if errors.Is(err, store.ErrPrincipalNotFound) {
			return fmt.Errorf("principal %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to remove principal: %w", err)
		}
		fmt.Printf("Removed principal %s\n", args[0])
		return nil
	},
}
