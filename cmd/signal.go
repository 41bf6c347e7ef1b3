package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/ovpnctl/manager"
)

var SignalCmd = &cobra.Command{
	Use:   "signal <SIGHUP|SIGTERM|SIGUSR1|SIGUSR2>",
	Short: "Ask openvpn to raise a signal on itself",
	Long: `Ask openvpn to raise a signal on itself

Usage
	ovpnctl signal SIGUSR1
	ovpnctl signal hup
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := manager.ParseSignal(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}

		defer s.Close()

		info, err := s.manager.Signal(ctx, sig)
		if err != nil {
			return err
		}

		if err := info.ErrorOrNil(); err != nil {
			return err
		}

		s.log.Info("Signal sent", zap.String("signal", string(sig)))

		return nil
	},
}
