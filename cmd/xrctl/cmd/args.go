package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ExactArgsWithUsage returns a validator that requires exactly n arguments.
// If the count is wrong, it shows the command's usage with argument names.
func ExactArgsWithUsage(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return argsError(cmd, n, len(args))
		}
		return nil
	}
}

// argsError creates a helpful error message showing expected usage.
func argsError(cmd *cobra.Command, want, got int) error {
	argNames := extractArgNames(cmd.Use)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("requires %d argument(s), received %d\n\n", want, got))
	msg.WriteString(fmt.Sprintf("Usage: %s %s\n", cmd.CommandPath(), strings.Join(argNames, " ")))
	msg.WriteString(fmt.Sprintf("\nRun '%s --help' for details.", cmd.CommandPath()))

	return fmt.Errorf("%s", msg.String())
}

// extractArgNames extracts argument names from a Use string.
// For example: "revoke <TARGET@HOP> <rule>" returns ["<TARGET@HOP>", "<rule>"].
func extractArgNames(use string) []string {
	parts := strings.Fields(use)
	var args []string

	// Skip the command name (first part)
	for _, part := range parts[1:] {
		if strings.HasPrefix(part, "<") || strings.HasPrefix(part, "[") {
			args = append(args, part)
		}
	}

	return args
}
