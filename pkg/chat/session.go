// Package chat implements the customer side of a tenant chat channel: the
// session lifecycle, the transcript, and the mapping of broker frames onto
// local state.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/daiyunwei1998/customer-chat/pkg/bus"
	"github.com/daiyunwei1998/customer-chat/pkg/logger"
	"github.com/daiyunwei1998/customer-chat/pkg/tenant"
)

// Broker destinations for the tenant chat channel.
const (
	DestinationJoin = "/app/chat.addUser"
	DestinationSend = "/app/chat.sendMessage"
	QueueMessages   = "/user/queue/messages"
)

// ErrNotConnected is returned by Send outside the Joined state. The message
// is not queued; there is no offline buffering.
var ErrNotConnected = errors.New("session not joined")

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a session reached StateClosed.
type CloseReason string

const (
	ReasonUserInitiated  CloseReason = "user-initiated"
	ReasonTransportError CloseReason = "transport-error"
	ReasonTenantNotFound CloseReason = "tenant-not-found"
)

// Binding is one open connection to the broker, scoped to a single user.
// Implementations deliver subscription payloads and connection failures on
// their own goroutines.
type Binding interface {
	Connect(ctx context.Context) error
	Subscribe(destination string, handler func(body []byte)) error
	Publish(destination string, body []byte) error
	// Errors delivers asynchronous transport failures; the channel is
	// closed when the binding shuts down.
	Errors() <-chan error
	Close() error
}

// Dialer creates a fresh Binding for each connect attempt.
type Dialer func(userID, credential string) (Binding, error)

// Directory resolves a human-readable tenant alias to a tenant ID.
type Directory interface {
	Find(ctx context.Context, alias string) (string, error)
}

// Options tune the reconnect policy.
type Options struct {
	// ReconnectDelay is the fixed delay between connect attempts.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts bounds consecutive failed attempts; 0 retries
	// until Disconnect.
	MaxReconnectAttempts int
	// HandshakeTimeout bounds a single transport handshake.
	HandshakeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	return o
}

// Session owns one chat connection: its state machine, transport binding,
// transcript and typing indicator. At most one binding is active at a time;
// a new connect attempt tears down any prior binding first.
//
// All mutations go through the session mutex since binding callbacks arrive
// on transport goroutines while Send and Disconnect are caller-driven.
type Session struct {
	dial      Dialer
	directory Directory
	events    *bus.EventBus
	opts      Options

	mu         sync.Mutex
	state      State
	reason     CloseReason
	tenantID   string
	userID     string
	credential string
	typing     bool
	store      *Store
	binding    Binding
	generation int
	loopCancel context.CancelFunc
}

// NewSession creates an idle session. events may be nil when no UI loop is
// attached; directory may be nil when tenant IDs are resolved elsewhere.
func NewSession(dial Dialer, directory Directory, events *bus.EventBus, opts Options) *Session {
	return &Session{
		dial:      dial,
		directory: directory,
		events:    events,
		opts:      opts.withDefaults(),
		store:     NewStore(),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CloseReason returns why the session closed; empty unless StateClosed.
func (s *Session) CloseReason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Typing reports whether the peer is composing a reply: true while an
// ACKNOWLEDGEMENT is the most recent inbound signal.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Store returns the session transcript.
func (s *Session) Store() *Store {
	return s.store
}

// ResolveTenant looks up a tenant by alias. It never changes session state;
// identity errors are terminal for the attempt and must be surfaced, not
// retried.
func (s *Session) ResolveTenant(ctx context.Context, alias string) (string, error) {
	if s.directory == nil {
		return "", tenant.ErrUnavailable
	}
	return s.directory.Find(ctx, alias)
}

// Connect starts the connect loop for the given identity. Calling while
// Connecting or Joined with the same identity is a no-op; a different
// identity tears down the prior binding and clears the transcript.
func (s *Session) Connect(tenantID, userID, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(tenantID, userID, credential)
}

// ConnectAlias resolves the alias and then connects. A failed resolution
// closes the attempt: tenant-not-found for an unknown alias, back to Idle
// when the directory itself is unreachable.
func (s *Session) ConnectAlias(ctx context.Context, alias, userID, credential string) error {
	s.mu.Lock()
	s.teardownLocked()
	s.setStateLocked(StateConnecting, "")
	s.mu.Unlock()

	tenantID, err := s.ResolveTenant(ctx, alias)
	if err != nil {
		s.mu.Lock()
		if errors.Is(err, tenant.ErrNotFound) {
			s.setStateLocked(StateClosed, ReasonTenantNotFound)
		} else {
			s.setStateLocked(StateIdle, "")
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(tenantID, userID, credential)
}

func (s *Session) connectLocked(tenantID, userID, credential string) error {
	sameIdentity := s.tenantID == tenantID && s.userID == userID
	if sameIdentity && (s.state == StateConnecting && s.loopCancel != nil || s.state == StateJoined) {
		return nil
	}

	s.teardownLocked()
	if !sameIdentity {
		s.store.Clear()
	}

	s.tenantID = tenantID
	s.userID = userID
	s.credential = credential
	s.typing = false
	s.setStateLocked(StateConnecting, "")

	ctx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	gen := s.generation

	go s.connectLoop(ctx, gen, tenantID, userID, credential)
	return nil
}

// Disconnect cancels any in-flight retry, releases the binding and moves to
// Closed(user-initiated). Safe to call from any state, including
// mid-handshake.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.setStateLocked(StateClosed, ReasonUserInitiated)
}

// Send builds a CHAT message from the input and publishes it. Whitespace-only
// input is a silent no-op. The local append always precedes the publish so
// the sender sees their own message even when the publish fails; publish
// failures surface asynchronously, never as a rollback.
func (s *Session) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	if s.state != StateJoined {
		s.mu.Unlock()
		return ErrNotConnected
	}
	msg := NewChatMessage(s.userID, s.tenantID, content)
	s.store.Append(msg)
	s.emitLocked(bus.SessionEvent{
		Kind:      bus.EventMessage,
		Sender:    msg.Sender,
		Content:   msg.Content,
		TenantID:  msg.TenantID,
		Timestamp: msg.Timestamp,
	})
	binding := s.binding
	s.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := binding.Publish(DestinationSend, data); err != nil {
		logger.ErrorCF("session", "Publish failed", map[string]any{"error": err.Error()})
		s.mu.Lock()
		s.emitLocked(bus.SessionEvent{Kind: bus.EventError, Err: err.Error()})
		s.mu.Unlock()
	}
	return nil
}

// connectLoop drives one identity's connection: dial, handshake, subscribe,
// announce JOIN, then watch for drops and reconnect with a fixed delay.
func (s *Session) connectLoop(ctx context.Context, gen int, tenantID, userID, credential string) {
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		binding, err := s.openBinding(ctx, gen, tenantID, userID, credential)
		if err != nil {
			attempts++
			logger.WarnCF("session", "Connect attempt failed", map[string]any{
				"attempt": attempts,
				"error":   err.Error(),
			})
			s.emit(gen, bus.SessionEvent{Kind: bus.EventError, Err: err.Error()})

			if s.opts.MaxReconnectAttempts > 0 && attempts >= s.opts.MaxReconnectAttempts {
				s.closeFromLoop(gen, ReasonTransportError)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.opts.ReconnectDelay):
			}
			continue
		}

		s.mu.Lock()
		if gen != s.generation || ctx.Err() != nil {
			s.mu.Unlock()
			binding.Close()
			return
		}
		s.binding = binding
		s.setStateLocked(StateJoined, "")
		s.mu.Unlock()
		attempts = 0

		logger.InfoCF("session", "Joined tenant channel", map[string]any{
			"tenant_id": tenantID,
			"user_id":   userID,
		})

		// Block until the binding drops or the session is torn down.
		select {
		case <-ctx.Done():
			binding.Close()
			return
		case err, ok := <-binding.Errors():
			binding.Close()
			s.mu.Lock()
			if gen != s.generation {
				s.mu.Unlock()
				return
			}
			s.binding = nil
			s.setStateLocked(StateConnecting, "")
			s.mu.Unlock()
			if ok && err != nil {
				logger.WarnCF("session", "Binding dropped, reconnecting", map[string]any{"error": err.Error()})
				s.emit(gen, bus.SessionEvent{Kind: bus.EventError, Err: err.Error()})
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.opts.ReconnectDelay):
			}
		}
	}
}

// openBinding performs one full connect attempt: dial, handshake, subscribe
// to the user queue, publish the JOIN announcement.
func (s *Session) openBinding(ctx context.Context, gen int, tenantID, userID, credential string) (Binding, error) {
	binding, err := s.dial(userID, credential)
	if err != nil {
		return nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()
	if err := binding.Connect(connectCtx); err != nil {
		binding.Close()
		return nil, err
	}

	if err := binding.Subscribe(QueueMessages, func(body []byte) {
		s.handleFrame(gen, body)
	}); err != nil {
		binding.Close()
		return nil, err
	}

	join, err := json.Marshal(NewJoinMessage(userID, tenantID))
	if err != nil {
		binding.Close()
		return nil, err
	}
	if err := binding.Publish(DestinationJoin, join); err != nil {
		binding.Close()
		return nil, err
	}
	return binding, nil
}

// handleFrame interprets one inbound frame. CHAT appends and clears typing;
// ACKNOWLEDGEMENT only raises typing; unknown kinds are dropped for forward
// compatibility; undecodable payloads are dropped and logged.
func (s *Session) handleFrame(gen int, body []byte) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.WarnCF("session", "Dropping malformed frame", map[string]any{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}

	switch msg.Type {
	case TypeChat:
		s.store.Append(msg)
		s.emitLocked(bus.SessionEvent{
			Kind:      bus.EventMessage,
			Sender:    msg.Sender,
			Content:   msg.Content,
			TenantID:  msg.TenantID,
			Timestamp: msg.Timestamp,
		})
		if s.typing {
			s.typing = false
			s.emitLocked(bus.SessionEvent{Kind: bus.EventTyping, Typing: false})
		}
	case TypeAcknowledgement:
		if !s.typing {
			s.typing = true
			s.emitLocked(bus.SessionEvent{Kind: bus.EventTyping, Typing: true})
		}
	default:
		logger.DebugCF("session", "Ignoring frame", map[string]any{"type": string(msg.Type)})
	}
}

// closeFromLoop transitions to Closed(reason) unless a newer connect attempt
// has superseded this loop.
func (s *Session) closeFromLoop(gen int, reason CloseReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.setStateLocked(StateClosed, reason)
}

// teardownLocked cancels the connect loop, invalidates outstanding binding
// callbacks and closes the binding.
func (s *Session) teardownLocked() {
	if s.loopCancel != nil {
		s.loopCancel()
		s.loopCancel = nil
	}
	s.generation++
	if s.binding != nil {
		s.binding.Close()
		s.binding = nil
	}
}

func (s *Session) setStateLocked(state State, reason CloseReason) {
	s.state = state
	s.reason = reason
	s.emitLocked(bus.SessionEvent{
		Kind:   bus.EventState,
		State:  state.String(),
		Reason: string(reason),
	})
}

// emit publishes an event if gen is still current.
func (s *Session) emit(gen int, ev bus.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.emitLocked(ev)
}

// emitLocked hands an event to the bus without blocking; a saturated bus
// drops events rather than stalling the session under its own mutex. The
// transcript in the store stays authoritative.
func (s *Session) emitLocked(ev bus.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.TryPublish(ev); err != nil {
		logger.DebugCF("session", "Event dropped", map[string]any{"kind": string(ev.Kind)})
	}
}
