// Package push delivers server-originated events to chat sessions: new
// messages on conversation-scoped topics and serving-status changes on a
// global topic. The session consumes only the Subscriber interface; Hub is
// an in-process implementation for tests and embedded use, and
// WebSocketSubscriber bridges a live server socket.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TopicStatus is the global topic carrying conversation status-changed
// notifications. Its payload is the conversation id whose mode changed.
const TopicStatus = "chat.status"

// ConversationTopic returns the message-delivery topic for a conversation.
func ConversationTopic(conversationID string) string {
	return "chat.conversation." + conversationID
}

// Event is one push delivery.
type Event struct {
	Topic     string    `json:"topic"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Decode unmarshals the event payload into out. Payloads arriving over the
// wire are raw JSON; payloads published in-process may be typed values, which
// are round-tripped through JSON so both paths behave identically.
func (e Event) Decode(out any) error {
	switch data := e.Data.(type) {
	case json.RawMessage:
		return json.Unmarshal(data, out)
	case []byte:
		return json.Unmarshal(data, out)
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		return json.Unmarshal(raw, out)
	}
}

// Handler processes one delivered event. Handlers run on the subscriber's
// delivery goroutine; events for one subscription arrive in publish order.
type Handler func(ctx context.Context, event Event)

// Subscriber registers topic handlers. Subscribe returns an unsubscribe
// function; calling it more than once is safe.
type Subscriber interface {
	Subscribe(topic string, handler Handler) (func(), error)
}
