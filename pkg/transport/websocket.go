// Package transport opens STOMP-over-WebSocket bindings to the chat broker.
// One binding is one connection scoped to one user; the session controller
// owns its lifecycle.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daiyunwei1998/customer-chat/pkg/chat"
	"github.com/daiyunwei1998/customer-chat/pkg/logger"
)

// ErrHandshakeFailed is returned when the broker rejects the STOMP CONNECT.
var ErrHandshakeFailed = errors.New("stomp handshake failed")

// noDeadline clears a previously set read deadline.
var noDeadline time.Time

// BrokerURL builds the WebSocket endpoint for a user from the chat service
// host, rewriting the http(s) scheme to ws(s).
func BrokerURL(host, userID string) (string, error) {
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("parsing chat service host: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in chat service host", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"user": {userID}}.Encode()
	return u.String(), nil
}

// NewDialer returns a chat.Dialer that opens WebSocket bindings against the
// given chat service host.
func NewDialer(host string) chat.Dialer {
	return func(userID, credential string) (chat.Binding, error) {
		endpoint, err := BrokerURL(host, userID)
		if err != nil {
			return nil, err
		}
		return NewWSBinding(endpoint, credential), nil
	}
}

// WSBinding is a STOMP client over a single WebSocket connection.
type WSBinding struct {
	endpoint   string
	credential string

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]func(body []byte)
	subSeq int

	errs   chan error
	closed atomic.Bool
}

// NewWSBinding creates an unconnected binding for the endpoint. credential,
// when non-empty, is carried as the Authorization CONNECT header.
func NewWSBinding(endpoint, credential string) *WSBinding {
	return &WSBinding{
		endpoint:   endpoint,
		credential: credential,
		subs:       make(map[string]func(body []byte)),
		errs:       make(chan error, 1),
	}
}

// Connect dials the WebSocket endpoint and performs the STOMP handshake.
// On success the read loop starts delivering MESSAGE frames to subscription
// handlers.
func (b *WSBinding) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}

	u, _ := url.Parse(b.endpoint)
	connect := NewFrame(CmdConnect,
		"accept-version", "1.2",
		"host", u.Host,
		"heart-beat", "0,0",
	)
	if b.credential != "" {
		connect.Headers["Authorization"] = "Bearer " + b.credential
	}
	if err := conn.WriteMessage(websocket.TextMessage, connect.Marshal()); err != nil {
		conn.Close()
		return fmt.Errorf("sending CONNECT: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	frame, err := b.readHandshake(conn)
	if err != nil {
		conn.Close()
		return err
	}
	if frame.Command != CmdConnected {
		conn.Close()
		return fmt.Errorf("%w: broker answered %s: %s",
			ErrHandshakeFailed, frame.Command, frame.Headers["message"])
	}
	conn.SetReadDeadline(noDeadline)

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	go b.readLoop(conn)
	return nil
}

// readHandshake reads frames until a non-heartbeat frame arrives.
func (b *WSBinding) readHandshake(conn *websocket.Conn) (*Frame, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		frame, err := ParseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		if frame != nil {
			return frame, nil
		}
	}
}

// Subscribe registers a handler for a destination and announces the
// subscription to the broker.
func (b *WSBinding) Subscribe(destination string, handler func(body []byte)) error {
	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return errors.New("binding not connected")
	}
	b.subs[destination] = handler
	b.subSeq++
	id := fmt.Sprintf("sub-%d", b.subSeq)
	frame := NewFrame(CmdSubscribe, "id", id, "destination", destination)
	err := conn.WriteMessage(websocket.TextMessage, frame.Marshal())
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("sending SUBSCRIBE: %w", err)
	}
	return nil
}

// Publish sends a JSON body to an application destination.
func (b *WSBinding) Publish(destination string, body []byte) error {
	frame := NewFrame(CmdSend,
		"destination", destination,
		"content-type", "application/json",
	)
	frame.Body = body

	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return errors.New("binding not connected")
	}
	err := conn.WriteMessage(websocket.TextMessage, frame.Marshal())
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("sending to %s: %w", destination, err)
	}
	return nil
}

// Errors delivers asynchronous transport failures. Closed when the read
// loop exits.
func (b *WSBinding) Errors() <-chan error {
	return b.errs
}

// Close tears the connection down. Best-effort DISCONNECT; safe to call
// more than once.
func (b *WSBinding) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.WriteMessage(websocket.TextMessage, NewFrame(CmdDisconnect).Marshal())
	return conn.Close()
}

// readLoop dispatches inbound frames until the connection drops.
func (b *WSBinding) readLoop(conn *websocket.Conn) {
	defer close(b.errs)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() {
				b.reportError(err)
			}
			return
		}

		frame, err := ParseFrame(data)
		if err != nil {
			logger.WarnCF("transport", "Dropping unparseable frame", map[string]any{"error": err.Error()})
			continue
		}
		if frame == nil { // heartbeat
			continue
		}

		switch frame.Command {
		case CmdMessage:
			b.dispatch(frame)
		case CmdError:
			b.reportError(fmt.Errorf("broker error: %s", frame.Headers["message"]))
			return
		default:
			logger.DebugCF("transport", "Ignoring frame", map[string]any{"command": frame.Command})
		}
	}
}

func (b *WSBinding) dispatch(frame *Frame) {
	destination := frame.Headers["destination"]
	b.mu.Lock()
	handler := b.subs[destination]
	b.mu.Unlock()
	if handler == nil {
		logger.DebugCF("transport", "No subscription for destination", map[string]any{
			"destination": destination,
		})
		return
	}
	handler(frame.Body)
}

// reportError hands one error to the session without blocking; the first
// failure is what matters, the binding is torn down after it.
func (b *WSBinding) reportError(err error) {
	select {
	case b.errs <- err:
	default:
	}
}
