package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

var ErrInvalidConfig = errors.New("Invalid config")

type Config struct {
	// Addr of the management interface, host:port or a unix socket path
	Addr string `env:"OVPNCTL_ADDR,default=127.0.0.1:7505" validate:"required"`

	// Password answers the management password prompt, if there is one
	Password string `env:"OVPNCTL_PASSWORD"`

	Timeout time.Duration `env:"OVPNCTL_TIMEOUT,default=20s" validate:"gt=0"`

	NotificationBuffer int `env:"OVPNCTL_NOTIFICATION_BUFFER,default=255" validate:"min=1"`

	LogLevel string `env:"OVPNCTL_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`

	// HTTPAddr is where `ovpnctl serve` listens
	HTTPAddr  string `env:"OVPNCTL_HTTP_ADDR,default=127.0.0.1:7362" validate:"required"`
	DebugHTTP bool   `env:"OVPNCTL_DEBUG_HTTP"`
}

// LoadConfig reads .env.local, when there is one, and then the environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return LoadConfigFrom(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom reads the config from lookuper instead of the environment.
// .env.local is not consulted.
func LoadConfigFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the config, flags applied on top of it included.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var valErrors validator.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err
	}

	errMsg := make([]string, 0, len(valErrors))
	for _, valErr := range valErrors {
		errMsg = append(errMsg,
			fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", valErr.Field(), valErr.Tag()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errMsg, ", "))
}
