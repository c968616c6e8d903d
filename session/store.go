package session

import (
	"sort"

	"github.com/freshplate/supportchat/chat"
)

// MessageStore holds the ordered message history for one conversation.
// Iteration order is ascending by timestamp (equal timestamps keep insertion
// order, which server clock skew makes possible) and ids are unique.
//
// The store is not safe for concurrent use; the owning Controller serializes
// all access.
type MessageStore struct {
	messages []chat.Message
	ids      map[string]struct{}
}

// NewMessageStore creates an empty MessageStore.
func NewMessageStore() *MessageStore {
	return &MessageStore{ids: make(map[string]struct{})}
}

// Upsert merges a message with the same id in place (latest wins, position
// preserved) or inserts the message at its timestamp-ordered position.
func (s *MessageStore) Upsert(msg chat.Message) {
	if _, exists := s.ids[msg.ID]; exists {
		for i := range s.messages {
			if s.messages[i].ID == msg.ID {
				s.messages[i] = msg
				return
			}
		}
	}

	pos := len(s.messages)
	for pos > 0 && s.messages[pos-1].Timestamp.After(msg.Timestamp) {
		pos--
	}

	s.messages = append(s.messages, chat.Message{})
	copy(s.messages[pos+1:], s.messages[pos:])
	s.messages[pos] = msg
	s.ids[msg.ID] = struct{}{}
}

// RemovePending removes the first pending message satisfying match and
// returns it. At most one message is removed per call.
func (s *MessageStore) RemovePending(match func(chat.Message) bool) (chat.Message, bool) {
	for i, msg := range s.messages {
		if msg.Pending() && match(msg) {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			delete(s.ids, msg.ID)
			return msg, true
		}
	}
	return chat.Message{}, false
}

// PrependPage inserts a page of older messages before the current history,
// discarding any already present by id. Input order does not matter; the
// page is sorted ascending before insertion.
func (s *MessageStore) PrependPage(older []chat.Message) {
	fresh := make([]chat.Message, 0, len(older))
	for _, msg := range older {
		if _, exists := s.ids[msg.ID]; exists {
			continue
		}
		fresh = append(fresh, msg)
	}
	if len(fresh) == 0 {
		return
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp.Before(fresh[j].Timestamp)
	})

	for _, msg := range fresh {
		s.ids[msg.ID] = struct{}{}
	}
	s.messages = append(fresh, s.messages...)
}

// Messages returns a defensive copy of the history.
func (s *MessageStore) Messages() []chat.Message {
	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Last returns the most recent message, if any.
func (s *MessageStore) Last() (chat.Message, bool) {
	if len(s.messages) == 0 {
		return chat.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Contains reports whether a message with the given id is held.
func (s *MessageStore) Contains(id string) bool {
	_, exists := s.ids[id]
	return exists
}

// Len returns the number of messages held.
func (s *MessageStore) Len() int {
	return len(s.messages)
}

// Clear resets the store to empty.
func (s *MessageStore) Clear() {
	s.messages = nil
	s.ids = make(map[string]struct{})
}
