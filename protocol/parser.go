package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrLineTooLong      = errors.New("Line exceeds the maximum allowed length")
	ErrNotNotification  = errors.New("Line is not a notification, it is missing the notification marker")
	ErrUnexpectedPrompt = errors.New("Peer did not send the expected prompt")
)

// DefaultMaxLineLength bounds a single line read from the peer.
const DefaultMaxLineLength = 64 * 1024

// LineReader splits the byte stream coming from the peer into lines.
//
// To stop a LineReader that is blocked waiting for data, close the
// underlying connection.
type LineReader struct {
	r      *bufio.Reader
	maxLen int
}

// NewLineReader returns a LineReader for r. Lines longer than maxLen bytes
// are rejected with ErrLineTooLong, a maxLen < 1 means DefaultMaxLineLength.
func NewLineReader(r io.Reader, maxLen int) *LineReader {
	if maxLen < 1 {
		maxLen = DefaultMaxLineLength
	}

	return &LineReader{
		r:      bufio.NewReader(r),
		maxLen: maxLen,
	}
}

// ReadLine returns the next line without its "\n" or "\r\n" ending.
//
// A final line that is not newline terminated is dropped and the read error
// (usually io.EOF) is returned instead.
func (l *LineReader) ReadLine() (string, error) {
	var buf bytes.Buffer

	for {
		chunk, err := l.r.ReadSlice('\n')
		if buf.Len()+len(chunk) > l.maxLen+2 {
			return "", ErrLineTooLong
		}

		buf.Write(chunk)

		if errors.Is(err, bufio.ErrBufferFull) {
			// incomplete line
			continue
		}

		if err != nil {
			return "", err
		}

		line := RemoveTrailingCR(buf.Bytes()[:buf.Len()-1])
		if len(line) > l.maxLen {
			return "", ErrLineTooLong
		}

		return string(line), nil
	}
}

// ReadPrompt consumes exactly len(prompt) bytes and checks that they match
// prompt. Prompts are not newline terminated so ReadLine can't be used.
func (l *LineReader) ReadPrompt(prompt string) error {
	got := make([]byte, len(prompt))
	if _, err := io.ReadFull(l.r, got); err != nil {
		return err
	}

	if string(got) != prompt {
		return fmt.Errorf("Expected '%s' got '%s': %w", prompt, string(got), ErrUnexpectedPrompt)
	}

	return nil
}

// Classify decides what kind of line this is. The terminator is checked
// first so that it is never mistaken for anything else, then the
// notification marker, then the status prefixes.
func (d Dialect) Classify(line string) LineKind {
	switch {
	case line == d.Terminator:
		return KindTerminator

	case d.NotificationMarker != "" && strings.HasPrefix(line, d.NotificationMarker):
		return KindNotification

	case strings.HasPrefix(line, d.SuccessPrefix):
		return KindSuccess

	case strings.HasPrefix(line, d.ErrorPrefix):
		return KindError

	default:
		return KindBody
	}
}

// StatusText strips the status prefix of a single-line reply along with
// the whitespace that follows it.
//
//	SUCCESS: pid=1234  ->  pid=1234
func (d Dialect) StatusText(line string) string {
	switch {
	case strings.HasPrefix(line, d.SuccessPrefix):
		line = line[len(d.SuccessPrefix):]

	case strings.HasPrefix(line, d.ErrorPrefix):
		line = line[len(d.ErrorPrefix):]
	}

	return strings.TrimLeft(line, " \t")
}

// ParseNotification splits a notification line into its category and
// payload.
//
//	>STATE:1700000000,CONNECTED,SUCCESS,...  ->  "STATE", "1700000000,CONNECTED,SUCCESS,..."
//
// A line without a ':' has an empty payload.
func (d Dialect) ParseNotification(line string) (category string, payload string, err error) {
	if d.NotificationMarker == "" || !strings.HasPrefix(line, d.NotificationMarker) {
		return "", "", fmt.Errorf("Failed to parse '%s': %w", line, ErrNotNotification)
	}

	rest := line[len(d.NotificationMarker):]

	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return rest, "", nil
	}

	return rest[:idx], rest[idx+1:], nil
}

// ParseKeyValues parses the "key=value" pairs that several commands return
// in their reply body, e.g. "pid=1234" or "nclients=1,bytesin=2,bytesout=3".
// Pairs are separated by commas or whitespace, items without '=' are
// ignored.
func ParseKeyValues(body string) map[string]string {
	values := make(map[string]string)

	fields := strings.FieldsFunc(body, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})

	for _, field := range fields {
		idx := strings.IndexByte(field, '=')
		if idx <= 0 {
			continue
		}

		values[field[:idx]] = field[idx+1:]
	}

	return values
}

// RemoveTrailingCR removes an optional trailing '\r'.
func RemoveTrailingCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		// Remove the optional trailing \r
		return data[:len(data)-1]
	}

	return data
}
