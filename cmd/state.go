package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luma/ovpnctl/manager"
)

var StateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current state of the tunnel",
	Long: `Print the current state of the tunnel

A table is printed on a terminal, "name=value" lines otherwise.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}

		defer s.Close()

		state, err := s.manager.State(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if isTerminal(out) {
			_, err = fmt.Fprintln(out, renderFields(stateFields(state)))
			return err
		}

		return printFields(out, stateFields(state))
	},
}

func stateFields(state manager.StateInfo) [][2]string {
	fields := [][2]string{
		{"state", state.State},
		{"description", state.Description},
		{"since", state.Time.Local().Format("2006-01-02 15:04:05")},
	}

	if state.LocalIP != "" {
		fields = append(fields, [2]string{"local_ip", state.LocalIP})
	}

	if state.LocalIPv6 != "" {
		fields = append(fields, [2]string{"local_ipv6", state.LocalIPv6})
	}

	if state.RemoteIP != "" {
		fields = append(fields,
			[2]string{"remote_ip", state.RemoteIP},
			[2]string{"remote_port", strconv.Itoa(state.RemotePort)})
	}

	return fields
}

func printFields(w io.Writer, fields [][2]string) error {
	for _, field := range fields {
		if _, err := fmt.Fprintf(w, "%s=%s\n", field[0], field[1]); err != nil {
			return err
		}
	}

	return nil
}
