package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/ovpnctl/internal/meta"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ovpnctl",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), meta.GetInfo().String())
	},
}
