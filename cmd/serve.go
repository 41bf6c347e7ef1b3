package cmd

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/ovpnctl/internal/env"
	"github.com/luma/ovpnctl/storage"
	"github.com/luma/ovpnctl/transport/bridge"
)

var (
	// Address to serve HTTP on, overrides OVPNCTL_HTTP_ADDR
	httpAddr string

	// Commands to run once connected, e.g. "state on"
	serveEnable []string

	// File the notification snapshot is restored from and saved to
	snapshotPath string
)

func init() {
	flags := ServeCmd.Flags()

	flags.StringVar(&httpAddr, "http-addr", "", "The address to listen to HTTP requests on")
	flags.StringSliceVar(&serveEnable, "enable", []string{"state on"}, "Commands to send once connected")
	flags.StringVar(&snapshotPath, "snapshot", "", "Restore the latest notifications from this file and save them back on exit")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the management interface over HTTP",
	Long: `Serve the management interface over HTTP

Usage
	ovpnctl serve
	ovpnctl serve --http-addr 0.0.0.0:7362 --enable "state on" --enable "bytecount 5"
	ovpnctl serve --snapshot /var/lib/ovpnctl/snapshot.json

Routes
	GET  /ping
	GET  /state
	GET  /pid
	GET  /notifications              latest notification of every category
	GET  /notifications/:category
	POST /command                    the body is sent as a raw command
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signalContext()
		defer signalStop()

		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}

		defer s.Close()

		log := s.log

		fileLimit, err := setFileLimit()
		if err != nil {
			log.Warn("Failed to raise the file limit", zap.Error(err))
		} else {
			log.Debug("Set file limit", zap.Uint64("fileLimit", fileLimit))
		}

		if cmd.Flags().Changed("http-addr") {
			s.config.HTTPAddr = httpAddr
		}

		store := storage.NewInmemoryStore(log.Named("storage"))
		defer store.Close()

		if snapshotPath != "" {
			restored, err := restoreSnapshot(store, snapshotPath)
			if err != nil {
				return err
			}

			log.Info("Snapshot", zap.String("path", snapshotPath), zap.Bool("restored", restored))
		}

		// Listen before subscribing so no update is missed
		updates := store.ListenToUpdates()
		go logUpdates(updates, log.Named("updates"))

		unsubscribe := s.stream.Subscribe(store)
		defer unsubscribe()

		if err := s.manager.Apply(ctx, serveEnable...); err != nil {
			return err
		}

		server := bridge.NewHTTP(bridge.Options{
			Addr:      s.config.HTTPAddr,
			Reuseport: true,
			Debug:     s.config.DebugHTTP,
			Manager:   s.manager,
			Store:     store,
			Log:       log.Named("http"),
		})

		if err := server.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.Any("config", redact(s.config)),
			zap.String("addr", server.Addr().String()),
			zap.String("management", s.stream.RemoteAddr().String()))

		select {
		case <-ctx.Done():
			// Restore default behavior on the interrupt signal and notify user of shutdown.
			signalStop()
			log.Info("Shutting down gracefully, press Ctrl+C again to force")

		case <-s.stream.Done():
			// The stream also stops when ctx is done
			if ctx.Err() == nil {
				err = s.stream.Err()
				log.Error("Lost the management connection, shutting down", zap.Error(err))
			}
		}

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if serr := server.Shutdown(shutdownCtx); serr != nil {
			log.Error("Http server forced to shutdown", zap.Error(serr))
		}

		if snapshotPath != "" {
			if serr := saveSnapshot(store, snapshotPath); serr != nil {
				log.Error("Failed to save snapshot", zap.String("path", snapshotPath), zap.Error(serr))
			}
		}

		log.Info("Exiting")
		return err
	},
}

func logUpdates(updates <-chan *storage.Update, log *zap.Logger) {
	for update := range updates {
		log.Debug("Notification recorded",
			zap.String("category", update.Key),
			zap.ByteString("value", update.Value))
	}
}

func redact(config *env.Config) env.Config {
	c := *config
	if c.Password != "" {
		c.Password = "********"
	}

	return c
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, fmt.Errorf("Failed to set file limit to %d: %w", rLimit.Max, err)
	}

	return rLimit.Cur, nil
}
