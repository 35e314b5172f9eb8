// Command tembactl administers a temba API deployment: it runs migrations
// and creates the orgs, users and tokens API clients authenticate with.
package main

import (
	"os"

	"github.com/phrazzld/temba-api/cmd/tembactl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
