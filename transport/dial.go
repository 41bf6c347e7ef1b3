package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

var ErrEmptyAddress = errors.New("Management interface address is empty")

// ParseAddr works out the network of a management interface address.
//
//	unix:///run/openvpn/mgmt.sock, unix:/run/openvpn/mgmt.sock, /run/openvpn/mgmt.sock  ->  unix
//	127.0.0.1:7505, localhost:7505, tcp://127.0.0.1:7505                                 ->  tcp
func ParseAddr(addr string) (network string, address string, err error) {
	addr = strings.TrimSpace(addr)

	switch {
	case addr == "":
		return "", "", ErrEmptyAddress

	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://"), nil

	case strings.HasPrefix(addr, "unix:"):
		return "unix", strings.TrimPrefix(addr, "unix:"), nil

	case strings.HasPrefix(addr, "/"), strings.HasPrefix(addr, "./"):
		return "unix", addr, nil

	case strings.HasPrefix(addr, "tcp://"):
		addr = strings.TrimPrefix(addr, "tcp://")
	}

	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", "", fmt.Errorf("Failed to parse '%s': %w", addr, err)
	}

	return "tcp", addr, nil
}

// Dial connects to a management interface. timeout bounds the dial, zero
// means no limit other than ctx.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	network, address, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to %s %s: %w", network, address, err)
	}

	return conn, nil
}
