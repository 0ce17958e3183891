package transport

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrame_Marshal(t *testing.T) {
	frame := NewFrame(CmdSend, "destination", "/app/chat.sendMessage")
	frame.Body = []byte(`{"content":"hi"}`)

	data := frame.Marshal()
	if !bytes.HasPrefix(data, []byte("SEND\n")) {
		t.Errorf("missing command line: %q", data)
	}
	if !bytes.Contains(data, []byte("destination:/app/chat.sendMessage\n")) {
		t.Errorf("missing destination header: %q", data)
	}
	if !bytes.Contains(data, []byte("content-length:16\n")) {
		t.Errorf("missing content-length header: %q", data)
	}
	if data[len(data)-1] != 0 {
		t.Error("frame must be NUL-terminated")
	}
}

func TestFrame_MarshalEmptyBody(t *testing.T) {
	data := NewFrame(CmdDisconnect).Marshal()
	if bytes.Contains(data, []byte("content-length")) {
		t.Errorf("empty body must not carry content-length: %q", data)
	}
	if !bytes.Equal(data, []byte("DISCONNECT\n\n\x00")) {
		t.Errorf("unexpected wire form: %q", data)
	}
}

func TestParseFrame_RoundTrip(t *testing.T) {
	original := NewFrame(CmdMessage,
		"destination", "/user/queue/messages",
		"subscription", "sub-1",
	)
	original.Body = []byte(`{"sender":"agent","type":"CHAT"}`)

	parsed, err := ParseFrame(original.Marshal())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Command != CmdMessage {
		t.Errorf("command: %q", parsed.Command)
	}
	if parsed.Headers["destination"] != "/user/queue/messages" {
		t.Errorf("destination: %q", parsed.Headers["destination"])
	}
	if !bytes.Equal(parsed.Body, original.Body) {
		t.Errorf("body: %q", parsed.Body)
	}
}

func TestParseFrame_Heartbeat(t *testing.T) {
	for _, data := range [][]byte{[]byte("\n"), []byte("\n\x00"), {0}} {
		frame, err := ParseFrame(data)
		if err != nil {
			t.Errorf("heartbeat %q: %v", data, err)
		}
		if frame != nil {
			t.Errorf("heartbeat %q: expected nil frame, got %+v", data, frame)
		}
	}
}

func TestParseFrame_FirstHeaderWins(t *testing.T) {
	frame, err := ParseFrame([]byte("MESSAGE\ndestination:/first\ndestination:/second\n\nbody\x00"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if frame.Headers["destination"] != "/first" {
		t.Errorf("expected first occurrence to win, got %q", frame.Headers["destination"])
	}
}

func TestParseFrame_Malformed(t *testing.T) {
	_, err := ParseFrame([]byte("MESSAGE\nno-colon-header\n\nbody\x00"))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestParseFrame_HeaderValueWithColon(t *testing.T) {
	frame, err := ParseFrame([]byte("CONNECTED\nsession:host:8080\n\n\x00"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if frame.Headers["session"] != "host:8080" {
		t.Errorf("value split at wrong colon: %q", frame.Headers["session"])
	}
}
