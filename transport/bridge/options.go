package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/luma/ovpnctl/client"
	"github.com/luma/ovpnctl/manager"
	"github.com/luma/ovpnctl/storage"
)

// Manager is the part of *manager.Manager the bridge exposes.
type Manager interface {
	State(ctx context.Context) (manager.StateInfo, error)
	Pid(ctx context.Context) (int, error)
	Send(ctx context.Context, command string) (client.ReceiveInfo, error)
}

type Options struct {
	// Addr to listen on, host:port
	Addr string

	// Reuseport controls setting SO_REUSEPORT
	Reuseport bool

	// Debug runs gin in debug mode
	Debug bool

	Manager Manager

	// Store holds the latest notification of each category
	Store storage.Store

	Log *zap.Logger
}
