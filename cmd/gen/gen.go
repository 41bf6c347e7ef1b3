package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate documentation for ovpnctl",
	Long: `Generate documentation for ovpnctl

Usage
	ovpnctl gen man --dir man/
`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
