package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/funvibe/diffsmith/internal/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s/%s\n", config.ToolName, config.Version, runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
