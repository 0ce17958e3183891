package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws?user=u-1"},
		{"https://chat.example.com", "wss://chat.example.com/ws?user=u-1"},
		{"ws://localhost:8080", "ws://localhost:8080/ws?user=u-1"},
		{"wss://chat.example.com", "wss://chat.example.com/ws?user=u-1"},
	}
	for _, tt := range tests {
		got, err := BrokerURL(tt.host, "u-1")
		if err != nil {
			t.Errorf("%s: %v", tt.host, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestBrokerURL_UnsupportedScheme(t *testing.T) {
	if _, err := BrokerURL("ftp://example.com", "u-1"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

var upgrader = websocket.Upgrader{}

// fakeBroker answers the STOMP handshake and then runs script against the
// connection.
func fakeBroker(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := ParseFrame(data)
		if err != nil || frame.Command != CmdConnect {
			t.Errorf("expected CONNECT, got %q (%v)", data, err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, NewFrame(CmdConnected, "version", "1.2").Marshal())

		if script != nil {
			script(conn)
		}
	}))
}

func wsHost(srv *httptest.Server) string {
	return strings.Replace(srv.URL, "http://", "ws://", 1)
}

func TestWSBinding_ConnectAndDispatch(t *testing.T) {
	delivered := make(chan []byte, 1)

	srv := fakeBroker(t, func(conn *websocket.Conn) {
		// Expect the SUBSCRIBE, then push one MESSAGE at its destination.
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, err := ParseFrame(data)
		if err != nil || sub.Command != CmdSubscribe {
			t.Errorf("expected SUBSCRIBE, got %q (%v)", data, err)
			return
		}

		msg := NewFrame(CmdMessage,
			"destination", sub.Headers["destination"],
			"subscription", sub.Headers["id"],
		)
		msg.Body = []byte(`{"sender":"agent"}`)
		conn.WriteMessage(websocket.TextMessage, msg.Marshal())

		// Hold the connection open until the client disconnects.
		conn.ReadMessage()
	})
	defer srv.Close()

	endpoint, err := BrokerURL(wsHost(srv), "u-1")
	if err != nil {
		t.Fatalf("broker url: %v", err)
	}
	binding := NewWSBinding(endpoint, "")
	defer binding.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := binding.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := binding.Subscribe("/user/queue/messages", func(body []byte) {
		delivered <- body
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case body := <-delivered:
		if string(body) != `{"sender":"agent"}` {
			t.Errorf("unexpected body: %q", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not dispatched")
	}
}

func TestWSBinding_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
		conn.WriteMessage(websocket.TextMessage,
			NewFrame(CmdError, "message", "no credentials").Marshal())
	}))
	defer srv.Close()

	endpoint, _ := BrokerURL(wsHost(srv), "u-1")
	binding := NewWSBinding(endpoint, "")
	defer binding.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := binding.Connect(ctx)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if !strings.Contains(err.Error(), "no credentials") {
		t.Errorf("broker message not surfaced: %v", err)
	}
}

func TestWSBinding_BrokerErrorSurfacesOnErrors(t *testing.T) {
	srv := fakeBroker(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			NewFrame(CmdError, "message", "session expired").Marshal())
	})
	defer srv.Close()

	endpoint, _ := BrokerURL(wsHost(srv), "u-1")
	binding := NewWSBinding(endpoint, "")
	defer binding.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := binding.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case err := <-binding.Errors():
		if err == nil || !strings.Contains(err.Error(), "session expired") {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broker error not delivered")
	}
}

func TestWSBinding_CredentialHeader(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, _ := ParseFrame(data)
		gotAuth <- frame.Headers["Authorization"]
		conn.WriteMessage(websocket.TextMessage, NewFrame(CmdConnected).Marshal())
	}))
	defer srv.Close()

	endpoint, _ := BrokerURL(wsHost(srv), "u-1")
	binding := NewWSBinding(endpoint, "tok-123")
	defer binding.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := binding.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if auth := <-gotAuth; auth != "Bearer tok-123" {
		t.Errorf("unexpected Authorization header: %q", auth)
	}
}
