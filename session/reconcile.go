package session

import (
	"github.com/google/uuid"

	"github.com/freshplate/supportchat/chat"
)

// sendFailureNotice is the inline SYSTEM message that replaces a placeholder
// when its send request fails. Surfacing the failure in the conversation
// keeps it visible in context; the user resends manually.
const sendFailureNotice = "Your message could not be delivered. Please try again."

// ReconciliationEngine merges locally-created optimistic messages with
// server-confirmed ones. An inbound confirmed message from the customer's own
// role first consumes a matching pending placeholder, then lands by id.
//
// Placeholder matching is by content and role (plus conversation id when the
// placeholder has one). This heuristic is best-effort: identical texts
// pending simultaneously collapse onto the first match, a known and accepted
// ambiguity.
type ReconciliationEngine struct {
	store    *MessageStore
	selfRole chat.Role
}

// NewReconciliationEngine creates an engine over the given store. The local
// sender role is CUSTOMER; messages from any other role skip the
// placeholder-matching step.
func NewReconciliationEngine(store *MessageStore) *ReconciliationEngine {
	return &ReconciliationEngine{store: store, selfRole: chat.RoleCustomer}
}

// Apply reconciles one inbound server message into the store. Upserting by
// id makes Apply idempotent under push/backfill re-delivery.
func (e *ReconciliationEngine) Apply(msg chat.Message) {
	if msg.Status == "" {
		msg.Status = chat.StatusConfirmed
	}

	// An id already held means pure re-delivery: the placeholder for that
	// message was consumed on first arrival, so a content match now would
	// swallow an unrelated in-flight send.
	if msg.SenderRole == e.selfRole && msg.Status == chat.StatusConfirmed && !e.store.Contains(msg.ID) {
		e.store.RemovePending(func(p chat.Message) bool {
			if p.Content != msg.Content || p.SenderRole != msg.SenderRole {
				return false
			}
			return p.ConversationID == "" || p.ConversationID == msg.ConversationID
		})
	}

	e.store.Upsert(msg)
}

// ApplyPage reconciles a fetched page, oldest message first.
func (e *ReconciliationEngine) ApplyPage(ascending []chat.Message) {
	for _, msg := range ascending {
		e.Apply(msg)
	}
}

// FailPending removes the placeholder with the given temporary id and puts a
// single SYSTEM error message in its place, keeping the placeholder's
// timestamp so the notice sits where the message would have been. A missing
// placeholder (already confirmed by a racing fetch) is a no-op.
func (e *ReconciliationEngine) FailPending(tempID string) bool {
	placeholder, removed := e.store.RemovePending(func(p chat.Message) bool {
		return p.ID == tempID
	})
	if !removed {
		return false
	}

	e.store.Upsert(chat.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: placeholder.ConversationID,
		SenderRole:     chat.RoleSystem,
		Content:        sendFailureNotice,
		Timestamp:      placeholder.Timestamp,
		Status:         chat.StatusConfirmed,
	})
	return true
}
