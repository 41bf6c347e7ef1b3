package protocol

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidCommand = errors.New("Command is malformed, commands must be a single non-empty line")

	Terminal = []byte("\n")
)

// WriteCommand writes command to w as a single line.
//
// The whole line is handed to w in one Write call so that concurrent
// writers sharing a lock never interleave partial commands.
func WriteCommand(w io.Writer, command string) error {
	if err := ValidateCommand(command); err != nil {
		return err
	}

	b := make([]byte, 0, len(command)+len(Terminal))
	b = append(b, command...)
	b = append(b, Terminal...)

	_, err := w.Write(b)
	return err
}

// ValidateCommand checks that command can be sent as exactly one line.
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("Failed to write '%s': %w", command, ErrInvalidCommand)
	}

	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("Failed to write %q: %w", command, ErrInvalidCommand)
	}

	return nil
}

// Escape quotes a command argument for the management interface.
//
// Arguments that are empty or contain whitespace, double quotes or
// backslashes are wrapped in double quotes, with '\' and '"' escaped by a
// backslash. Other arguments are returned as is.
func Escape(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"\\") {
		return arg
	}

	var b strings.Builder

	b.Grow(len(arg) + 2)
	b.WriteByte('"')

	for i := 0; i < len(arg); i++ {
		c := arg[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}

		b.WriteByte(c)
	}

	b.WriteByte('"')

	return b.String()
}

// Join builds a command line from a command name and its arguments, escaping
// each argument.
//
//	Join("username", "Auth", "my user")  ->  username Auth "my user"
func Join(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)

	for _, arg := range args {
		parts = append(parts, Escape(arg))
	}

	return strings.Join(parts, " ")
}
