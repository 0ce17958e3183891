package transport

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// STOMP 1.2 commands used by the chat broker. The broker speaks the Spring
// simple-broker dialect: no transactions, no header escaping beyond the
// basic subset, frames terminated by a NUL byte.
const (
	CmdConnect    = "CONNECT"
	CmdConnected  = "CONNECTED"
	CmdSubscribe  = "SUBSCRIBE"
	CmdSend       = "SEND"
	CmdMessage    = "MESSAGE"
	CmdError      = "ERROR"
	CmdDisconnect = "DISCONNECT"
)

// ErrMalformedFrame is returned when a frame cannot be parsed.
var ErrMalformedFrame = errors.New("malformed stomp frame")

// Frame is one STOMP frame: a command, headers, and an optional body.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with the given command and header pairs.
func NewFrame(command string, headers ...string) *Frame {
	f := &Frame{Command: command, Headers: make(map[string]string, len(headers)/2)}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Marshal serializes the frame in wire form:
//
//	COMMAND\nheader:value\n...\n\nbody\x00
func (f *Frame) Marshal() []byte {
	var b bytes.Buffer
	b.WriteString(f.Command)
	b.WriteByte('\n')
	for k, v := range f.Headers {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	if len(f.Body) > 0 {
		b.WriteString("content-length:")
		b.WriteString(strconv.Itoa(len(f.Body)))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.Write(f.Body)
	b.WriteByte(0)
	return b.Bytes()
}

// ParseFrame parses one wire frame. Heartbeat frames (a bare newline) yield
// a nil frame and nil error.
func ParseFrame(data []byte) (*Frame, error) {
	data = bytes.TrimSuffix(data, []byte{0})
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	head, body, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		head = data
	}

	lines := strings.Split(string(head), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, ErrMalformedFrame
	}

	f := &Frame{
		Command: strings.TrimSpace(lines[0]),
		Headers: make(map[string]string, len(lines)-1),
		Body:    body,
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		// First occurrence wins, per the STOMP spec.
		if _, exists := f.Headers[k]; !exists {
			f.Headers[k] = v
		}
	}
	return f, nil
}
