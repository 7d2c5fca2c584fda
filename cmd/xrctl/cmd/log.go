package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var logLimit int

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntVar(&logLimit, "limit", 50, "Maximum number of entries")
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent authorization decisions",
	Long: `List decision audit entries, newest first.

Examples:
  xrctl log
  xrctl log --limit 10 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := policyStore.ListDecisionEntries(logLimit)
		if err != nil {
			return fmt.Errorf("failed to list decisions: %w", err)
		}

		if outputFormat != "table" {
			return formatOutput(entries)
		}

		if len(entries) == 0 {
			fmt.Println("No decisions recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tCLIENT\tSERVICE\tEDGE\tOUTCOME\tREASON\tRULE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Local().Format(time.DateTime),
				e.Client, e.Service, e.Edge, e.Outcome, e.Reason, e.Rule)
		}
		return w.Flush()
	},
}
