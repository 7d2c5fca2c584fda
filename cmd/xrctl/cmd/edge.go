package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crossrealm/xrealmd/pkg/store"
	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

func init() {
	rootCmd.AddCommand(edgeCmd)
	edgeCmd.AddCommand(edgeAllowRealmCmd)
	edgeCmd.AddCommand(edgeAllowPrincipalCmd)
	edgeCmd.AddCommand(edgeRevokeCmd)
	edgeCmd.AddCommand(edgeListCmd)
}

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage trust edge authorization rules",
	Long: `Commands to grant, revoke, and list authorization rules on trust edges.

An edge is named TARGET@HOP. Granting a rule stores an attribute on the
krbtgt/TARGET@HOP principal record; the daemon reads the current rules on
every decision, so changes take effect immediately.`,
}

// edgePrincipal resolves the TARGET@HOP argument to the stored krbtgt
// principal name.
func edgePrincipal(raw string) (string, error) {
	edge, err := xrealm.ParseTrustEdge(raw)
	if err != nil {
		return "", err
	}
	return edge.Principal().String(), nil
}

// ruleKey normalizes a rule argument to its storage key. Accepts the full
// key ("xr:@R2.TEST"), the realm form ("@R2.TEST"), and principal forms
// ("alice", "alice@R3.TEST").
func ruleKey(arg string) (string, error) {
	key := arg
	if !strings.HasPrefix(key, xrealm.AttrPrefix) {
		key = xrealm.AttrPrefix + key
	}
	if _, ok := xrealm.ParseRule(key); !ok {
		return "", fmt.Errorf("invalid rule %q: want @REALM, name, or name@REALM", arg)
	}
	return key, nil
}

// grantRule stores one rule key on the edge, registering the edge principal
// on first use.
func grantRule(edgeArg, key string) error {
	principal, err := edgePrincipal(edgeArg)
	if err != nil {
		return err
	}

	err = policyStore.SetAttribute(principal, key, "")
	if errors.Is(err, store.ErrPrincipalNotFound) {
		if err = policyStore.AddPrincipal(principal); err == nil {
			err = policyStore.SetAttribute(principal, key, "")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to grant rule: %w", err)
	}

	fmt.Printf("Granted %s on edge %s\n", key, edgeArg)
	return nil
}

var edgeAllowRealmCmd = &cobra.Command{
	Use:   "allow-realm <TARGET@HOP> <REALM>",
	Short: "Allow all clients from an origin realm",
	Long: `Grant a realm rule on a trust edge.

Any client whose origin realm equals REALM is authorized across the edge.

Examples:
  xrctl edge allow-realm R1.TEST@R2.TEST R2.TEST
  xrctl edge allow-realm R1.TEST@R2.TEST R3.TEST   # transitive origin`,
	Args: ExactArgsWithUsage(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		realm := strings.TrimSpace(args[1])
		if realm == "" {
			return fmt.Errorf("realm must not be empty")
		}
		key, err := ruleKey("@" + realm)
		if err != nil {
			return err
		}
		return grantRule(args[0], key)
	},
}

var edgeAllowPrincipalCmd = &cobra.Command{
	Use:   "allow-principal <TARGET@HOP> <principal>",
	Short: "Allow a specific client principal",
	Long: `Grant a principal rule on a trust edge.

A bare name ("alice") matches a client named alice from the edge's hop
realm. A qualified name ("alice@R3.TEST") matches exactly that principal
regardless of the transit path.

Examples:
  xrctl edge allow-principal R1.TEST@R2.TEST alice
  xrctl edge allow-principal R1.TEST@R2.TEST alice@R3.TEST`,
	Args: ExactArgsWithUsage(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ruleKey(args[1])
		if err != nil {
			return err
		}
		if strings.HasPrefix(args[1], "@") {
			return fmt.Errorf("%q is a realm form; use 'edge allow-realm'", args[1])
		}
		return grantRule(args[0], key)
	},
}

var edgeRevokeCmd = &cobra.Command{
	Use:   "revoke <TARGET@HOP> <rule>",
	Short: "Revoke a rule from a trust edge",
	Long: `Remove a previously granted rule. The rule may be given in the same
form used to grant it: @REALM, a principal name, or the full storage key.

Examples:
  xrctl edge revoke R1.TEST@R2.TEST @R2.TEST
  xrctl edge revoke R1.TEST@R2.TEST alice@R3.TEST`,
	Args: ExactArgsWithUsage(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := edgePrincipal(args[0])
		if err != nil {
			return err
		}
		key, err := ruleKey(args[1])
		if err != nil {
			return err
		}

		err = policyStore.DeleteAttribute(principal, key)
		if errors.Is(err, store.ErrPrincipalNotFound) || errors.Is(err, store.ErrAttributeNotFound) {
			return fmt.Errorf("rule %s not present on edge %s", key, args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to revoke rule: %w", err)
		}

		fmt.Printf("Revoked %s from edge %s\n", key, args[0])
		return nil
	},
}

var edgeListCmd = &cobra.Command{
	Use:   "list <TARGET@HOP>",
	Short: "List rules granted on a trust edge",
	Long: `List the parsed authorization rules on a trust edge. Attributes that
are not recognized rules are shown separately; they never grant access.

Examples:
  xrctl edge list R1.TEST@R2.TEST
  xrctl edge list R1.TEST@R2.TEST -o json`,
	Args: ExactArgsWithUsage(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := edgePrincipal(args[0])
		if err != nil {
			return err
		}

		attrs, err := policyStore.ListAttributes(principal)
		if errors.Is(err, store.ErrPrincipalNotFound) {
			attrs = nil
		} else if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}

		type ruleDisplay struct {
			Key  string `json:"key" yaml:"key"`
			Kind string `json:"kind" yaml:"kind"`
		}
		var displays []ruleDisplay
		for _, a := range attrs {
			d := ruleDisplay{Key: a.Key, Kind: "foreign"}
			if rule, ok := xrealm.ParseRule(a.Key); ok {
				switch rule.(type) {
				case xrealm.RealmRule:
					d.Kind = "realm"
				case xrealm.PrincipalRule:
					d.Kind = "principal"
				}
			}
			displays = append(displays, d)
		}

		if outputFormat != "table" {
			return formatOutput(displays)
		}

		if len(displays) == 0 {
			fmt.Printf("No rules on edge %s.\n", args[0])
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tKIND")
		for _, d := range displays {
			fmt.Fprintf(w, "%s\t%s\n", d.Key, d.Kind)
		}
		return w.Flush()
	},
}
