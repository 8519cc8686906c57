package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/folio/internal/state"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the Folio version, the asset API it speaks and the stores it can open.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Folio v%s\n", version)
			_, _ = fmt.Fprintln(out, "Portfolio holdings sheet and asset API")
			_, _ = fmt.Fprintln(out, "API:    /api/v1")
			_, _ = fmt.Fprintf(out, "Stores: %s\n", strings.Join(state.StoreTypes, ", "))
		},
	}
}
