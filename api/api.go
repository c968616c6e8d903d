// Package api defines the transport collaborators the chat session consumes:
// paginated history fetches, message sends, conversation status lookups, and
// conversation bootstrap. The session depends only on the Client interface;
// HTTPClient is the production implementation against the storefront backend.
package api

import (
	"context"

	"github.com/freshplate/supportchat/chat"
)

// OutboundMessage is the payload for a message send.
type OutboundMessage struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	SenderRole     chat.Role `json:"sender_role"`
	Content        string    `json:"content"`
	Lang           string    `json:"lang,omitempty"`
	CustomerID     string    `json:"customer_id,omitempty"`
}

// SendReceipt is the server acknowledgement for a sent message. The
// conversation id may differ from the one sent when the server created a
// conversation implicitly on first message.
type SendReceipt struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// Client is the narrow transport surface the session controller uses.
// Implementations must be safe for concurrent use.
type Client interface {
	// FetchPage returns one page of message history, newest page first.
	// Page 0 holds the most recent pageSize messages.
	FetchPage(ctx context.Context, conversationID string, pageIndex, pageSize int) (chat.Page, error)
	// SendMessage submits a customer message and returns the server receipt.
	SendMessage(ctx context.Context, msg OutboundMessage) (SendReceipt, error)
	// FetchStatus returns the raw serving-status string for a conversation.
	// Callers treat failure as AI mode.
	FetchStatus(ctx context.Context, conversationID string) (string, error)
	// InitConversation creates a conversation for a guest and returns its id.
	InitConversation(ctx context.Context) (string, error)
	// LatestConversation resolves an authenticated customer's most recent
	// conversation id.
	LatestConversation(ctx context.Context, customerID string) (string, error)
}
