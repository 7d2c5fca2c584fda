package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crossrealm/xrealmd/internal/config"
	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

var (
	decideClient  string
	decideService string
	decideEdge    string
	decideOrigin  string

	allowFmt   = color.New(color.FgGreen, color.Bold).SprintFunc()
	denyFmt    = color.New(color.FgRed, color.Bold).SprintFunc()
	monitorFmt = color.New(color.FgYellow, color.Bold).SprintFunc()
)

func init() {
	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().StringVar(&decideClient, "client", "", "Client principal (name@REALM)")
	decideCmd.Flags().StringVar(&decideService, "service", "", "Service principal (name@REALM)")
	decideCmd.Flags().StringVar(&decideEdge, "edge", "", "Trust edge (TARGET@HOP)")
	decideCmd.Flags().StringVar(&decideOrigin, "origin", "", "Origin realm (default: client realm)")
	decideCmd.MarkFlagRequired("client")
	decideCmd.MarkFlagRequired("service")
	decideCmd.MarkFlagRequired("edge")
}

var decideCmd = &cobra.Command{
	Use:   "decide --client <princ> --service <princ> --edge <TARGET@HOP>",
	Short: "Dry-run a decision against the local store",
	Long: `Evaluate one cross-realm request offline, using the local database and
the daemon config for mode and pre-approved realms. Nothing is written to
the decision log.

Examples:
  xrctl decide --client user@R2.TEST --service host/web01@R1.TEST --edge R1.TEST@R2.TEST
  xrctl decide --client user@R3.TEST --origin R3.TEST --service host/web01@R1.TEST --edge R1.TEST@R2.TEST`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := xrealm.ParsePrincipal(decideClient)
		if err != nil {
			return err
		}
		if client.Realm == "" {
			return fmt.Errorf("client must include a realm (name@REALM)")
		}
		service, err := xrealm.ParsePrincipal(decideService)
		if err != nil {
			return err
		}
		edge, err := xrealm.ParseTrustEdge(decideEdge)
		if err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = "/etc/xrealmd/xrealmd.yaml"
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		// A dry run must not pollute logs or the audit trail.
		engine, err := xrealm.NewEngine(xrealm.Config{
			Enforcing:     cfg.Enforcing,
			AllowedRealms: cfg.AllowedRealms,
			Source:        policyStore,
			Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
			Audit:         xrealm.NopDecisionLogger{},
		})
		if err != nil {
			return err
		}

		decision := engine.Decide(context.Background(), xrealm.Request{
			Client:      client,
			OriginRealm: decideOrigin,
			Service:     service,
			Edge:        edge,
		})

		if outputFormat != "table" {
			return formatOutput(map[string]string{
				"outcome": string(decision.Outcome),
				"reason":  string(decision.Reason),
				"rule":    decision.Rule,
			})
		}

		var verdict string
		switch decision.Outcome {
		case xrealm.OutcomeAllow:
			verdict = allowFmt("ALLOW")
		case xrealm.OutcomeAllowLogged:
			verdict = monitorFmt("ALLOW (monitoring: would deny)")
		default:
			verdict = denyFmt("DENY")
		}

		fmt.Printf("%s  reason=%s", verdict, decision.Reason)
		if decision.Rule != "" {
			fmt.Printf(" rule=%s", decision.Rule)
		}
		fmt.Println()
		return nil
	},
}
