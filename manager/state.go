package manager

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luma/ovpnctl/protocol"
)

var ErrMalformedState = errors.New("State line is malformed")

// StateInfo is one line of the state command, or the payload of a >STATE:
// notification.
//
//	1700000000,CONNECTED,SUCCESS,10.8.0.2,203.0.113.5,1194,,
type StateInfo struct {
	Time        time.Time
	State       string
	Description string
	LocalIP     string
	RemoteIP    string
	RemotePort  int
	LocalAddr   string
	LocalPort   int
	LocalIPv6   string
}

// Connected reports whether the tunnel is up.
func (s StateInfo) Connected() bool {
	return s.State == "CONNECTED"
}

// ParseState parses a state line. Fields past the state name are optional,
// older openvpn versions send fewer of them.
func ParseState(line string) (StateInfo, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 2 {
		return StateInfo{}, fmt.Errorf("Failed to parse '%s': %w", line, ErrMalformedState)
	}

	unix, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return StateInfo{}, fmt.Errorf("Failed to parse time of '%s': %w", line, ErrMalformedState)
	}

	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}

		return ""
	}

	port := func(i int) (int, error) {
		if field(i) == "" {
			return 0, nil
		}

		p, err := strconv.Atoi(field(i))
		if err != nil {
			return 0, fmt.Errorf("Failed to parse port of '%s': %w", line, ErrMalformedState)
		}

		return p, nil
	}

	info := StateInfo{
		Time:        time.Unix(unix, 0).UTC(),
		State:       field(1),
		Description: field(2),
		LocalIP:     field(3),
		RemoteIP:    field(4),
		LocalAddr:   field(6),
		LocalIPv6:   field(8),
	}

	if info.RemotePort, err = port(5); err != nil {
		return StateInfo{}, err
	}

	if info.LocalPort, err = port(7); err != nil {
		return StateInfo{}, err
	}

	return info, nil
}

// ByteCount is the payload of a >BYTECOUNT: notification.
type ByteCount struct {
	BytesIn  uint64
	BytesOut uint64
}

// ParseByteCount parses "in,out".
func ParseByteCount(payload string) (ByteCount, error) {
	parts := strings.Split(strings.TrimSpace(payload), ",")
	if len(parts) != 2 {
		return ByteCount{}, fmt.Errorf("Failed to parse byte count '%s'", payload)
	}

	in, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return ByteCount{}, fmt.Errorf("Failed to parse byte count '%s': %w", payload, err)
	}

	out, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ByteCount{}, fmt.Errorf("Failed to parse byte count '%s': %w", payload, err)
	}

	return ByteCount{BytesIn: in, BytesOut: out}, nil
}

// LogEntry is a line of log history, or the payload of a >LOG: notification.
//
//	1700000000,I,Initialization Sequence Completed
type LogEntry struct {
	Time    time.Time
	Flags   string
	Message string
}

func ParseLog(payload string) (LogEntry, error) {
	parts := strings.SplitN(payload, ",", 3)
	if len(parts) != 3 {
		return LogEntry{}, fmt.Errorf("Failed to parse log entry '%s'", payload)
	}

	unix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return LogEntry{}, fmt.Errorf("Failed to parse log entry '%s': %w", payload, err)
	}

	return LogEntry{
		Time:    time.Unix(unix, 0).UTC(),
		Flags:   parts[1],
		Message: parts[2],
	}, nil
}

// LoadStats is the reply to load-stats.
type LoadStats struct {
	Clients  int
	BytesIn  uint64
	BytesOut uint64
}

// ParseLoadStats parses "nclients=1,bytesin=2,bytesout=3".
func ParseLoadStats(body string) (LoadStats, error) {
	values := protocol.ParseKeyValues(body)

	var (
		stats LoadStats
		err   error
	)

	if stats.Clients, err = strconv.Atoi(values["nclients"]); err != nil {
		return LoadStats{}, fmt.Errorf("Failed to parse load stats '%s': %w", body, err)
	}

	if stats.BytesIn, err = strconv.ParseUint(values["bytesin"], 10, 64); err != nil {
		return LoadStats{}, fmt.Errorf("Failed to parse load stats '%s': %w", body, err)
	}

	if stats.BytesOut, err = strconv.ParseUint(values["bytesout"], 10, 64); err != nil {
		return LoadStats{}, fmt.Errorf("Failed to parse load stats '%s': %w", body, err)
	}

	return stats, nil
}
