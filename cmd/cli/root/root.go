package root

import (
	"github.com/spf13/cobra"
)

// Exported RootCmd
var RootCmd = &cobra.Command{
	Use:           "custody",
	Short:         "Asset custody CLI",
	Long:          "Command line interface for the asset custody API: inventory, checkouts, check-ins and collaborators.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// GetRoot returns the RootCmd.
func GetRoot() *cobra.Command {
	return RootCmd
}
