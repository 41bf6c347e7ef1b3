// Package manager is a typed façade over the management interface commands.
//
// Methods that only change a setting return the raw ReceiveInfo, an error
// status is left for the caller to inspect. Methods that return a parsed
// value turn an error status into a *client.ProtocolError.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/luma/ovpnctl/client"
	"github.com/luma/ovpnctl/protocol"
)

var ErrMissingValue = errors.New("Reply is missing an expected value")

// authType is the credential realm openvpn uses for --auth-user-pass.
const authType = "Auth"

// Sender sends a command and waits for its reply. *client.Stream is a Sender.
type Sender interface {
	Do(ctx context.Context, req client.Request) (client.ReceiveInfo, error)
}

type Manager struct {
	sender  Sender
	timeout time.Duration
}

// New returns a Manager sending through sender. A timeout <= 0 leaves the
// timeout to the sender's default.
func New(sender Sender, timeout time.Duration) *Manager {
	return &Manager{
		sender:  sender,
		timeout: timeout,
	}
}

func (m *Manager) send(ctx context.Context, command string, expect client.Expectation) (client.ReceiveInfo, error) {
	return m.sender.Do(ctx, client.Request{
		Command: command,
		Timeout: m.timeout,
		Expect:  expect,
	})
}

func (m *Manager) single(ctx context.Context, command string) (client.ReceiveInfo, error) {
	return m.send(ctx, command, client.Expectation{Shape: client.ShapeSingle})
}

func (m *Manager) block(ctx context.Context, command string) (client.ReceiveInfo, error) {
	return m.send(ctx, command, client.Expectation{Shape: client.ShapeBlock})
}

// value sends a command whose successful reply is a single line starting
// with prefix and returns that reply's body.
func (m *Manager) value(ctx context.Context, command string, prefix string) (string, error) {
	info, err := m.send(ctx, command, client.Expectation{Shape: client.ShapeSingle, Prefix: prefix})
	if err != nil {
		return "", err
	}

	if err := info.ErrorOrNil(); err != nil {
		return "", err
	}

	return info.Body, nil
}

// Send sends a raw command line.
func (m *Manager) Send(ctx context.Context, command string) (client.ReceiveInfo, error) {
	return m.send(ctx, command, client.Expectation{})
}

// Apply sends each command in turn. Every command is attempted, the errors
// of all failed commands, including error replies, are combined.
func (m *Manager) Apply(ctx context.Context, commands ...string) (err error) {
	for _, command := range commands {
		info, serr := m.Send(ctx, command)
		if serr != nil {
			err = multierr.Append(err, serr)
			continue
		}

		err = multierr.Append(err, info.ErrorOrNil())
	}

	return err
}

func (m *Manager) SetAuthRetry(ctx context.Context, mode AuthRetryMode) (client.ReceiveInfo, error) {
	return m.single(ctx, protocol.Join("auth-retry", string(mode)))
}

// ByteCount turns on >BYTECOUNT: notifications every sec seconds, 0 turns
// them off.
func (m *Manager) ByteCount(ctx context.Context, sec uint) (client.ReceiveInfo, error) {
	return m.single(ctx, fmt.Sprintf("bytecount %d", sec))
}

// Echo returns the whole echo buffer.
func (m *Manager) Echo(ctx context.Context) (client.ReceiveInfo, error) {
	return m.Send(ctx, "echo all")
}

// EchoEnable turns real-time >ECHO: notifications on or off.
func (m *Manager) EchoEnable(ctx context.Context, on bool) (client.ReceiveInfo, error) {
	return m.single(ctx, "echo "+onOff(on))
}

// EchoLast returns the last n lines of the echo buffer.
func (m *Manager) EchoLast(ctx context.Context, n uint) (client.ReceiveInfo, error) {
	return m.block(ctx, fmt.Sprintf("echo %d", n))
}

func (m *Manager) ForgetPasswords(ctx context.Context) (client.ReceiveInfo, error) {
	return m.single(ctx, "forget-passwords")
}

func (m *Manager) Help(ctx context.Context) (client.ReceiveInfo, error) {
	return m.block(ctx, "help")
}

// Hold sets or, with HoldQuery, shows the hold flag.
func (m *Manager) Hold(ctx context.Context, mode HoldMode) (client.ReceiveInfo, error) {
	if mode == HoldQuery {
		return m.single(ctx, "hold")
	}

	return m.single(ctx, protocol.Join("hold", string(mode)))
}

// LoadStats returns the server wide load statistics.
func (m *Manager) LoadStats(ctx context.Context) (LoadStats, error) {
	body, err := m.value(ctx, "load-stats", "nclients=")
	if err != nil {
		return LoadStats{}, err
	}

	return ParseLoadStats(body)
}

// LogEnable turns real-time >LOG: notifications on or off.
func (m *Manager) LogEnable(ctx context.Context, on bool) (client.ReceiveInfo, error) {
	return m.single(ctx, "log "+onOff(on))
}

// LogLast returns the last n lines of log history.
func (m *Manager) LogLast(ctx context.Context, n uint) (client.ReceiveInfo, error) {
	return m.block(ctx, fmt.Sprintf("log %d", n))
}

// Log returns the whole log history.
func (m *Manager) Log(ctx context.Context) (client.ReceiveInfo, error) {
	return m.block(ctx, "log all")
}

// Mute shows the current mute level.
func (m *Manager) Mute(ctx context.Context) (client.ReceiveInfo, error) {
	return m.single(ctx, "mute")
}

func (m *Manager) SetMute(ctx context.Context, level uint8) (client.ReceiveInfo, error) {
	return m.single(ctx, fmt.Sprintf("mute %d", level))
}

// Net shows network info and the routing table. Windows only.
func (m *Manager) Net(ctx context.Context) (client.ReceiveInfo, error) {
	return m.block(ctx, "net")
}

func (m *Manager) Username(ctx context.Context, username string) (client.ReceiveInfo, error) {
	return m.single(ctx, protocol.Join("username", authType, username))
}

func (m *Manager) Password(ctx context.Context, password string) (client.ReceiveInfo, error) {
	return m.single(ctx, protocol.Join("password", authType, password))
}

// State returns the current state of the tunnel.
func (m *Manager) State(ctx context.Context) (StateInfo, error) {
	info, err := m.block(ctx, "state")
	if err != nil {
		return StateInfo{}, err
	}

	if err := info.ErrorOrNil(); err != nil {
		return StateInfo{}, err
	}

	lines := info.Lines()
	if len(lines) == 0 {
		return StateInfo{}, fmt.Errorf("Empty reply to state: %w", ErrMissingValue)
	}

	return ParseState(lines[len(lines)-1])
}

// StateEnable turns real-time >STATE: notifications on or off.
func (m *Manager) StateEnable(ctx context.Context, on bool) (client.ReceiveInfo, error) {
	return m.single(ctx, "state "+onOff(on))
}

// Pid returns the process ID of the openvpn process.
func (m *Manager) Pid(ctx context.Context) (int, error) {
	body, err := m.value(ctx, "pid", "pid=")
	if err != nil {
		return 0, err
	}

	raw, ok := protocol.ParseKeyValues(body)["pid"]
	if !ok {
		return 0, fmt.Errorf("No pid in '%s': %w", body, ErrMissingValue)
	}

	pid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("Failed to parse pid '%s': %w", raw, err)
	}

	return pid, nil
}

func (m *Manager) Signal(ctx context.Context, signal Signal) (client.ReceiveInfo, error) {
	return m.single(ctx, "signal "+strings.ToUpper(string(signal)))
}

func (m *Manager) Version(ctx context.Context) (client.ReceiveInfo, error) {
	return m.block(ctx, "version")
}

// Status returns the status report, in the format openvpn defaults to.
func (m *Manager) Status(ctx context.Context) (client.ReceiveInfo, error) {
	return m.block(ctx, "status")
}

func onOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}
