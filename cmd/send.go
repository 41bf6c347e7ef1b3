package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/luma/ovpnctl/client"
)

var sendJSON bool

func init() {
	SendCmd.Flags().BoolVar(&sendJSON, "json", false, "Print the reply as JSON")
}

var SendCmd = &cobra.Command{
	Use:   "send <command...>",
	Short: "Send a raw command and print the reply",
	Long: `Send a raw command and print the reply

Usage
	ovpnctl send status 2
	ovpnctl send --json load-stats

An ERROR reply is printed to stderr and the exit status is 1.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}

		defer s.Close()

		info, err := s.manager.Send(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if sendJSON {
			out, err := renderReply(info)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return info.ErrorOrNil()
		}

		if err := info.ErrorOrNil(); err != nil {
			return err
		}

		if info.Body != "" {
			fmt.Fprintln(cmd.OutOrStdout(), info.Body)
		}

		return nil
	},
}

// renderReply renders info as a single line of JSON.
func renderReply(info client.ReceiveInfo) (string, error) {
	lines := info.Lines()
	if lines == nil {
		lines = []string{}
	}

	out := `{}`

	err := multierr.Combine(
		setJSON(&out, "command", info.Command),
		setJSON(&out, "status", info.Status.String()),
		setJSON(&out, "body", info.Body),
		setJSON(&out, "lines", lines),
		setJSON(&out, "receivedAt", info.ReceivedAt),
	)

	return out, err
}
