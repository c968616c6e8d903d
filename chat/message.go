// Package chat defines the core data model shared by the support chat
// session controller and its transport collaborators: messages, pages,
// and serving modes.
package chat

import "time"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAI       Role = "AI"
	RoleEmployee Role = "EMPLOYEE"
	RoleSystem   Role = "SYSTEM"
)

// Status marks whether a message has been acknowledged by the server.
// Pending messages carry a client-generated temporary id until the server
// assigns a permanent one.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusPending   Status = "PENDING"
)

// Product is a menu item a message may attach, e.g. when the AI agent
// suggests meals in response to a customer question.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

// Message is a single message in a support conversation.
//
// Within a conversation messages are uniquely identified by ID. A message
// composed locally starts out with Status PENDING and a temporary id; the
// confirmed server copy replaces it during reconciliation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderRole     Role      `json:"sender_role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Status         Status    `json:"status"`
	AttachedMenu   []Product `json:"attached_menu,omitempty"`
}

// NewMessage creates a confirmed Message with the given role and content,
// stamped with the current time.
func NewMessage(conversationID string, role Role, content string) Message {
	return Message{
		ConversationID: conversationID,
		SenderRole:     role,
		Content:        content,
		Timestamp:      time.Now(),
		Status:         StatusConfirmed,
	}
}

// Pending reports whether the message is still awaiting server confirmation.
func (m Message) Pending() bool {
	return m.Status == StatusPending
}

// Page is one fetched batch of message history. Content arrives newest-first
// from the server; page 0 is always the most recent pageSize messages.
type Page struct {
	Content    []Message `json:"content"`
	IsLastPage bool      `json:"is_last_page"`
}
