package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crossrealm/xrealmd/pkg/store"
)

func init() {
	rootCmd.AddCommand(attrCmd)
	attrCmd.AddCommand(attrSetCmd)
	attrCmd.AddCommand(attrDelCmd)
	attrCmd.AddCommand(attrListCmd)
}

var attrCmd = &cobra.Command{
	Use:   "attr",
	Short: "Raw attribute access on trust edges",
	Long: `Low-level attribute commands, equivalent to kadmin setstr/delstr on the
krbtgt principal. Unlike 'edge', these do not validate the key as a rule:
foreign attributes are stored verbatim and ignored by the daemon.`,
}

var attrSetCmd = &cobra.Command{
	Use:   "set <TARGET@HOP> <key> [value]",
	Short: "Set an attribute on a trust edge",
	Long: `Set one string attribute. The value defaults to "".

Examples:
  xrctl attr set R1.TEST@R2.TEST xr:@R2.TEST
  xrctl attr set R1.TEST@R2.TEST session_lifetime 8h`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := edgePrincipal(args[0])
		if err != nil {
			return err
		}
		value := ""
		if len(args) == 3 {
			value = args[2]
		}

		err = policyStore.SetAttribute(principal, args[1], value)
		if errors.Is(err, store.ErrPrincipalNotFound) {
			if err = policyStore.AddPrincipal(principal); err == nil {
				err = policyStore.SetAttribute(principal, args[1], value)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to set attribute: %w", err)
		}

		fmt.Printf("Set %s on edge %s\n", args[1], args[0])
		return nil
	},
}

var attrDelCmd = &cobra.Command{
	Use:   "del <TARGET@HOP> <key>",
	Short: "Delete an attribute from a trust edge",
	Args:  ExactArgsWithUsage(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := edgePrincipal(args[0])
		if err != nil {
			return err
		}

		err = policyStore.DeleteAttribute(principal, args[1])
		if errors.Is(err, store.ErrPrincipalNotFound) || errors.Is(err, store.ErrAttributeNotFound) {
			return fmt.Errorf("attribute %s not present on edge %s", args[1], args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to delete attribute: %w", err)
		}

		fmt.Printf("Deleted %s from edge %s\n", args[1], args[0])
		return nil
	},
}

var attrListCmd = &cobra.Command{
	Use:   "list <TARGET@HOP>",
	Short: "List all attributes on a trust edge",
	Args:  ExactArgsWithUsage(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := edgePrincipal(args[0])
		if err != nil {
			return err
		}

		attrs, err := policyStore.ListAttributes(principal)
		if errors.Is(err, store.ErrPrincipalNotFound) {
			attrs = nil
		} else if err != nil {
			return fmt.Errorf("failed to list attributes: %w", err)
		}

		if outputFormat != "table" {
			return formatOutput(attrs)
		}

		if len(attrs) == 0 {
			fmt.Printf("No attributes on edge %s.\n", args[0])
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		for _, a := range attrs {
			fmt.Fprintf(w, "%s\t%s\n", a.Key, a.Value)
		}
		return w.Flush()
	},
}
