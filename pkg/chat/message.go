package chat

import "time"

// MessageType discriminates frames on the chat channel.
type MessageType string

const (
	// TypeChat is a displayable conversation message.
	TypeChat MessageType = "CHAT"
	// TypeJoin announces a user joining the tenant channel.
	TypeJoin MessageType = "JOIN"
	// TypeAcknowledgement signals that the peer is composing a reply.
	// It is an indicator, never part of the transcript.
	TypeAcknowledgement MessageType = "ACKNOWLEDGEMENT"
)

// UserTypeCustomer tags everything this client sends; agent-side senders use
// their own tag.
const UserTypeCustomer = "customer"

// Message is one unit of conversation, in the backend's wire form. Messages
// are immutable after creation; transcript order is append order, not
// timestamp order.
type Message struct {
	Sender   string      `json:"sender"`
	Content  string      `json:"content,omitempty"`
	Type     MessageType `json:"type"`
	TenantID string      `json:"tenant_id"`
	// Receiver stays null on outbound messages: routing to whichever agent
	// picks up the conversation is resolved by the backend.
	Receiver  *string   `json:"receiver"`
	UserType  string    `json:"user_type,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NewChatMessage builds an outbound CHAT message for the given session
// identity.
func NewChatMessage(sender, tenantID, content string) Message {
	return Message{
		Sender:    sender,
		Content:   content,
		Type:      TypeChat,
		TenantID:  tenantID,
		UserType:  UserTypeCustomer,
		Timestamp: time.Now().UTC(),
	}
}

// NewJoinMessage builds the JOIN announcement published once per successful
// handshake.
func NewJoinMessage(sender, tenantID string) Message {
	return Message{
		Sender:   sender,
		Type:     TypeJoin,
		TenantID: tenantID,
		UserType: UserTypeCustomer,
	}
}
