package main

import (
	"fmt"
	"os"

	"github.com/crucial707/asset-custody/cmd/cli/assets"
	"github.com/crucial707/asset-custody/cmd/cli/auth"
	"github.com/crucial707/asset-custody/cmd/cli/collaborators"
	"github.com/crucial707/asset-custody/cmd/cli/movements"
	"github.com/crucial707/asset-custody/cmd/cli/reports"
	"github.com/crucial707/asset-custody/cmd/cli/root"
	"github.com/crucial707/asset-custody/cmd/cli/users"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	assets.InitAssets(rootCmd)
	movements.InitMovements(rootCmd)
	collaborators.InitCollaborators(rootCmd)
	reports.InitReports(rootCmd)
	users.InitUsers(rootCmd)

	// Execute the root Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
