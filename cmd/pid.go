package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var PidCmd = &cobra.Command{
	Use:   "pid",
	Short: "Print the process ID of openvpn",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}

		defer s.Close()

		pid, err := s.manager.Pid(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), pid)

		return nil
	},
}
