package env_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/luma/ovpnctl/internal/env"
)

var _ = Describe("env", func() {
	Describe("LoadConfigFrom()", func() {
		It("falls back to the defaults", func() {
			config, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
			Expect(err).To(Succeed())
			Expect(*config).To(Equal(env.Config{
				Addr:               "127.0.0.1:7505",
				Timeout:            20 * time.Second,
				NotificationBuffer: 255,
				LogLevel:           "info",
				HTTPAddr:           "127.0.0.1:7362",
			}))
		})

		It("reads the variables", func() {
			config, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
				"OVPNCTL_ADDR":       "unix:///run/openvpn/mgmt.sock",
				"OVPNCTL_PASSWORD":   "secret",
				"OVPNCTL_TIMEOUT":    "3s",
				"OVPNCTL_LOG_LEVEL":  "debug",
				"OVPNCTL_DEBUG_HTTP": "true",
			}))
			Expect(err).To(Succeed())
			Expect(config.Addr).To(Equal("unix:///run/openvpn/mgmt.sock"))
			Expect(config.Password).To(Equal("secret"))
			Expect(config.Timeout).To(Equal(3 * time.Second))
			Expect(config.LogLevel).To(Equal("debug"))
			Expect(config.DebugHTTP).To(BeTrue())
		})

		It("rejects values that parse but make no sense", func() {
			_, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
				"OVPNCTL_NOTIFICATION_BUFFER": "0",
				"OVPNCTL_LOG_LEVEL":           "loud",
			}))
			Expect(errors.Is(err, env.ErrInvalidConfig)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("NotificationBuffer"))
			Expect(err.Error()).To(ContainSubstring("LogLevel"))
		})

		It("rejects malformed values", func() {
			_, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
				"OVPNCTL_TIMEOUT": "soon",
			}))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MakeLogger()", func() {
		It("builds a logger at the given level", func() {
			log, err := env.MakeLogger("warn")
			Expect(err).To(Succeed())
			Expect(log.Core().Enabled(zapcore.InfoLevel)).To(BeFalse())
			Expect(log.Core().Enabled(zapcore.WarnLevel)).To(BeTrue())
		})

		It("rejects unknown levels", func() {
			_, err := env.MakeLogger("loud")
			Expect(err).To(HaveOccurred())
		})
	})
})
