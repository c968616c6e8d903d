package session

import "github.com/freshplate/supportchat/observability"

// Session event types emitted through the configured observer.
const (
	EventOpen            observability.EventType = "session.open"
	EventOpenFailed      observability.EventType = "session.open.failed"
	EventSend            observability.EventType = "session.send"
	EventSendFailed      observability.EventType = "session.send.failed"
	EventLoadOlder       observability.EventType = "session.load_older"
	EventLoadOlderFailed observability.EventType = "session.load_older.failed"
	EventBackfill        observability.EventType = "session.backfill"
	EventIncoming        observability.EventType = "session.incoming"
	EventModeChange      observability.EventType = "session.mode_change"
	EventAdopted         observability.EventType = "session.conversation.adopted"
	EventAwaitingTimeout observability.EventType = "session.awaiting_timeout"
)
