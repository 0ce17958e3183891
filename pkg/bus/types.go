package bus

import "time"

// EventKind discriminates session events delivered to the UI loop.
type EventKind string

const (
	// EventMessage is emitted when a message is appended to the transcript.
	EventMessage EventKind = "message"
	// EventTyping is emitted when the peer typing indicator changes.
	EventTyping EventKind = "typing"
	// EventState is emitted on every session state transition.
	EventState EventKind = "state"
	// EventError is emitted for asynchronous transport failures.
	EventError EventKind = "error"
)

// SessionEvent is one notification from the session controller. Only the
// fields relevant to Kind are populated.
type SessionEvent struct {
	Kind EventKind `json:"kind"`

	// EventMessage
	Sender    string    `json:"sender,omitempty"`
	Content   string    `json:"content,omitempty"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// EventTyping
	Typing bool `json:"typing,omitempty"`

	// EventState
	State  string `json:"state,omitempty"`
	Reason string `json:"reason,omitempty"`

	// EventError
	Err string `json:"error,omitempty"`
}
