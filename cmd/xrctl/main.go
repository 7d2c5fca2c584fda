// xrctl is the administrative CLI for cross-realm authorization policy.
package main

import (
	"os"

	"github.com/crossrealm/xrealmd/cmd/xrctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
