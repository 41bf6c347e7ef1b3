package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/ovpnctl/client"
	"github.com/luma/ovpnctl/cmd/gen"
	"github.com/luma/ovpnctl/internal/env"
	"github.com/luma/ovpnctl/manager"
)

var (
	// Address of the management interface, overrides OVPNCTL_ADDR
	addr string

	// Management password, overrides OVPNCTL_PASSWORD
	password string

	// Per command timeout, overrides OVPNCTL_TIMEOUT
	timeout time.Duration

	// Log level, overrides OVPNCTL_LOG_LEVEL
	logLevel string
)

var RootCmd = &cobra.Command{
	Use:   "ovpnctl",
	Short: "Talk to the management interface of a running openvpn",
	Long: `Talk to the management interface of a running openvpn

The management interface is enabled with --management in the openvpn config,
e.g. "management 127.0.0.1 7505" or "management /run/openvpn/mgmt.sock unix".

Settings are read from the environment, or from .env.local:
	OVPNCTL_ADDR                 management address (127.0.0.1:7505)
	OVPNCTL_PASSWORD             management password
	OVPNCTL_TIMEOUT              per command timeout (20s)
	OVPNCTL_NOTIFICATION_BUFFER  notification queue size (255)
	OVPNCTL_LOG_LEVEL            log level (info)
	OVPNCTL_HTTP_ADDR            address "serve" listens on (127.0.0.1:7362)
	OVPNCTL_DEBUG_HTTP           run the HTTP bridge in debug mode
`,
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&addr, "addr", "a", "", "Address of the management interface, host:port or a unix socket path")
	flags.StringVar(&password, "password", "", "Management password")
	flags.DurationVarP(&timeout, "timeout", "t", 0, "How long to wait for each reply")
	flags.StringVar(&logLevel, "log-level", "", "One of debug, info, warn or error")

	RootCmd.AddCommand(
		SendCmd,
		StateCmd,
		PidCmd,
		SignalCmd,
		WatchCmd,
		ServeCmd,
		VersionCmd,
		gen.RootCmd,
	)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is everything a command needs to talk to the management
// interface.
type session struct {
	config  *env.Config
	log     *zap.Logger
	stream  *client.Stream
	manager *manager.Manager
}

// loadConfig reads the config and applies the persistent flags on top.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*env.Config, error) {
	config, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("addr") {
		config.Addr = addr
	}

	if flags.Changed("password") {
		config.Password = password
	}

	if flags.Changed("timeout") {
		config.Timeout = timeout
	}

	if flags.Changed("log-level") {
		config.LogLevel = logLevel
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// openSession connects to the management interface. The connection is
// closed when ctx is done.
func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	config, err := loadConfig(ctx, cmd)
	if err != nil {
		return nil, err
	}

	log, err := env.MakeLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}

	stream, err := client.Dial(ctx, config.Addr, client.Options{
		DefaultTimeout:     config.Timeout,
		NotificationBuffer: config.NotificationBuffer,
		Password:           config.Password,
		Log:                log.Named("client"),
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to '%s': %w", config.Addr, err)
	}

	return &session{
		config:  config,
		log:     log,
		stream:  stream,
		manager: manager.New(stream, config.Timeout),
	}, nil
}

func (s *session) Close() error {
	err := s.stream.Close()

	// Sync fails on some terminals, there is nothing left to do about it
	_ = s.log.Sync()

	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
