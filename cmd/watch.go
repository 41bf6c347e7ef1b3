package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"

	"github.com/luma/ovpnctl/client"
)

var (
	// Print notifications as JSON lines
	watchJSON bool

	// Turn on >BYTECOUNT: every N seconds, 0 leaves it alone
	watchByteCount uint

	// Turn on >LOG: notifications
	watchLog bool

	// Turn on >STATE: notifications
	watchState bool
)

func init() {
	flags := WatchCmd.Flags()

	flags.BoolVar(&watchJSON, "json", false, "Print one JSON object per notification")
	flags.UintVar(&watchByteCount, "bytecount", 0, "Turn on byte count notifications every N seconds")
	flags.BoolVar(&watchLog, "log", false, "Turn on real-time log notifications")
	flags.BoolVar(&watchState, "state", false, "Turn on real-time state notifications")
}

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print notifications as they arrive",
	Long: `Print notifications as they arrive

Usage
	ovpnctl watch --state --log
	ovpnctl watch --json --bytecount 5

Runs until interrupted or until openvpn closes the connection.
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

		// Subscribe before turning anything on so nothing is missed
		notifications, unsubscribe := s.stream.Notifications(s.config.NotificationBuffer)
		defer unsubscribe()

		if err := s.manager.Apply(ctx, watchCommands()...); err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		for {
			select {
			case n, ok := <-notifications:
				if !ok {
					// Closed along with the stream
					<-s.stream.Done()
					return watchResult(ctx, s)
				}

				if err := printNotification(out, n, watchJSON); err != nil {
					return err
				}

			case <-ctx.Done():
				return nil

			case <-s.stream.Done():
				return watchResult(ctx, s)
			}
		}
	},
}

// watchResult is nil when the stream stopped because ctx was cancelled.
func watchResult(ctx context.Context, s *session) error {
	if ctx.Err() != nil {
		return nil
	}

	return s.stream.Err()
}

func watchCommands() []string {
	var commands []string

	if watchByteCount > 0 {
		commands = append(commands, fmt.Sprintf("bytecount %d", watchByteCount))
	}

	if watchLog {
		commands = append(commands, "log on")
	}

	if watchState {
		commands = append(commands, "state on")
	}

	return commands
}

func printNotification(w io.Writer, n client.Notification, asJSON bool) error {
	out, err := renderNotification(n, asJSON)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, out)
	return err
}

// renderNotification renders n either as the raw lines or as one line of
// JSON.
func renderNotification(n client.Notification, asJSON bool) (string, error) {
	if !asJSON {
		if len(n.Extra) == 0 {
			return n.Raw, nil
		}

		return n.Raw + "\n\t" + strings.Join(n.Extra, "\n\t"), nil
	}

	out := `{}`

	err := multierr.Combine(
		setJSON(&out, "category", n.Category),
		setJSON(&out, "payload", n.Payload),
		setJSON(&out, "receivedAt", n.ReceivedAt),
	)

	if len(n.Extra) > 0 {
		err = multierr.Append(err, setJSON(&out, "extra", n.Extra))
	}

	return out, err
}

func setJSON(out *string, path string, value interface{}) (err error) {
	*out, err = sjson.Set(*out, path, value)
	return err
}
