// Package session implements the client-held state of one customer support
// conversation: paginated message history, optimistic sends reconciled
// against server confirmations, live push deliveries, and the AI/employee
// serving mode.
//
// The Controller is the single entry point. It owns all mutable state behind
// one mutex, so every callback (HTTP completion, push delivery, timer) is
// applied atomically. Results of asynchronous work are guarded by an epoch
// counter incremented on every Open and at Close; a continuation whose
// captured epoch is stale discards its result instead of mutating state that
// now belongs to a different conversation.
//
//	ctrl, err := session.New(&cfg, client,
//		session.WithSubscriber(sub),
//		session.WithIdentityCache(cache),
//	)
//	err = ctrl.Open(ctx, session.Identity{})
//	err = ctrl.Send(ctx, "where is my order?")
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freshplate/supportchat/api"
	"github.com/freshplate/supportchat/chat"
	"github.com/freshplate/supportchat/identity"
	"github.com/freshplate/supportchat/observability"
	"github.com/freshplate/supportchat/push"
)

// Identity identifies who is opening the session. The zero value is a guest;
// a non-empty CustomerID resolves the customer's latest conversation
// server-side instead of using the local cache.
type Identity struct {
	CustomerID string
}

// Guest reports whether this identity is an anonymous guest.
func (i Identity) Guest() bool {
	return i.CustomerID == ""
}

// Snapshot is the read-only view handed to the rendering layer. Messages is
// a defensive copy in ascending time order.
type Snapshot struct {
	ConversationID   string
	Messages         []chat.Message
	HasMoreOlder     bool
	IsLoadingOlder   bool
	Mode             chat.Mode
	AwaitingResponse bool
}

// Option configures a Controller after config-driven initialization.
type Option func(*Controller)

// WithSubscriber attaches the push channel. Without one the session still
// works, reconciling through the post-send backfill alone.
func WithSubscriber(s push.Subscriber) Option {
	return func(c *Controller) { c.subscriber = s }
}

// WithIdentityCache overrides the default in-memory guest conversation cache.
func WithIdentityCache(cache identity.Cache) Option {
	return func(c *Controller) { c.cache = cache }
}

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithOnChange registers a callback invoked with a fresh Snapshot after
// every state change. The callback runs outside the session lock and must
// not call back into the Controller synchronously.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller orchestrates the message store, pagination cursor,
// reconciliation engine, mode machine, and awaiting tracker for one
// conversation at a time.
type Controller struct {
	client     api.Client
	subscriber push.Subscriber
	cache      identity.Cache
	observer   observability.Observer
	onChange   func(Snapshot)
	cfg        Config

	mu             sync.Mutex
	epoch          int
	closed         bool
	conversationID string
	customerID     string
	loadingOlder   bool
	store          *MessageStore
	cursor         *PaginationCursor
	engine         *ReconciliationEngine
	mode           *ModeStateMachine
	awaiting       *AwaitingResponseTracker
	unsubscribers  []func()
}

// New creates a Controller from configuration. A nil cfg uses defaults.
func New(cfg *Config, client api.Client, opts ...Option) (*Controller, error) {
	if client == nil {
		return nil, errors.New("session: api client is required")
	}

	merged := DefaultConfig()
	if cfg != nil {
		merged.Merge(cfg)
	}

	store := NewMessageStore()
	c := &Controller{
		client:   client,
		cache:    identity.NewMemoryCache(),
		observer: observability.NoOpObserver{},
		cfg:      merged,
		store:    store,
		cursor:   NewPaginationCursor(merged.PageSize),
		engine:   NewReconciliationEngine(store),
		mode:     NewModeStateMachine(),
		awaiting: NewAwaitingResponseTracker(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Open resolves or creates the conversation for the given identity, loads
// the newest page, and initializes the serving mode. Open fails soft: a
// resolution or fetch error leaves an empty but usable session, and Send
// still works and adopts the conversation the server creates for it.
func (c *Controller) Open(ctx context.Context, who Identity) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	c.epoch++
	epoch := c.epoch
	c.conversationID = ""
	c.customerID = who.CustomerID
	c.loadingOlder = false
	c.store.Clear()
	c.cursor.Reset()
	c.mode.Reset()
	c.awaiting.Reset()
	stale := c.unsubscribers
	c.unsubscribers = nil
	c.mu.Unlock()

	for _, unsubscribe := range stale {
		unsubscribe()
	}
	c.notify()

	c.subscribeStatus(epoch)

	conversationID, err := c.resolveConversation(ctx, who)
	if err != nil {
		c.emit(ctx, EventOpenFailed, observability.LevelWarning, "session.Open", map[string]any{
			"guest": who.Guest(),
			"error": err.Error(),
		})
		return nil
	}

	c.adoptConversation(ctx, epoch, conversationID)

	page, err := c.client.FetchPage(ctx, conversationID, 0, c.cfg.PageSize)
	if err != nil {
		c.apply(epoch, func() {
			c.cursor.MarkExhausted()
		})
		c.notify()
		c.emit(ctx, EventOpenFailed, observability.LevelWarning, "session.Open", map[string]any{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
	} else {
		c.apply(epoch, func() {
			c.engine.ApplyPage(ascending(page.Content))
			c.cursor.NoteLastPage(page.IsLastPage)
			c.recomputeAwaitingLocked()
		})
		c.notify()
	}

	c.refreshMode(ctx, epoch, conversationID)

	c.emit(ctx, EventOpen, observability.LevelInfo, "session.Open", map[string]any{
		"conversation_id": conversationID,
		"guest":           who.Guest(),
		"messages":        len(page.Content),
	})
	return nil
}

// LoadOlder fetches the next older page and prepends it. Calls while a load
// is already in flight, or after history is exhausted, are no-ops: at most
// one backward fetch runs per session. A failed fetch marks history
// exhausted instead of surfacing the error, so a failing scroll cannot loop.
func (c *Controller) LoadOlder(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.conversationID == "" || c.loadingOlder || !c.cursor.HasMoreOlder() {
		c.mu.Unlock()
		return nil
	}
	c.loadingOlder = true
	epoch := c.epoch
	conversationID := c.conversationID
	nextPage := c.cursor.PageIndex() + 1
	c.mu.Unlock()
	c.notify()

	page, err := c.client.FetchPage(ctx, conversationID, nextPage, c.cfg.PageSize)

	c.apply(epoch, func() {
		c.loadingOlder = false
		if err != nil {
			c.cursor.MarkExhausted()
			return
		}
		c.store.PrependPage(ascending(page.Content))
		c.cursor.Advance(page.IsLastPage)
	})
	c.notify()

	if err != nil {
		c.emit(ctx, EventLoadOlderFailed, observability.LevelWarning, "session.LoadOlder", map[string]any{
			"conversation_id": conversationID,
			"page":            nextPage,
			"error":           err.Error(),
		})
		return nil
	}

	c.emit(ctx, EventLoadOlder, observability.LevelVerbose, "session.LoadOlder", map[string]any{
		"conversation_id": conversationID,
		"page":            nextPage,
		"messages":        len(page.Content),
	})
	return nil
}

// Send submits a customer message. The pending placeholder appears in the
// history immediately; on confirmation the short-delay backfill re-fetches
// page 0 to cover a push race, and on failure the placeholder becomes an
// inline SYSTEM notice. Empty text is rejected, as is sending while the AI
// is still composing its reply.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if text == "" {
		c.mu.Unlock()
		return ErrEmptyMessage
	}
	if c.mode.Mode() == chat.ModeAI && c.awaiting.Value() {
		c.mu.Unlock()
		return ErrAwaitingResponse
	}

	epoch := c.epoch
	conversationID := c.conversationID
	customerID := c.customerID
	tempID := uuid.Must(uuid.NewV7()).String()

	c.store.Upsert(chat.Message{
		ID:             tempID,
		ConversationID: conversationID,
		SenderRole:     chat.RoleCustomer,
		Content:        text,
		Timestamp:      time.Now(),
		Status:         chat.StatusPending,
	})
	c.awaiting.Force()
	c.awaiting.Arm(c.cfg.AwaitTimeout, func() { c.onAwaitTimeout(epoch) })
	c.mu.Unlock()
	c.notify()

	receipt, err := c.client.SendMessage(ctx, api.OutboundMessage{
		ConversationID: conversationID,
		SenderRole:     chat.RoleCustomer,
		Content:        text,
		Lang:           c.cfg.Lang,
		CustomerID:     customerID,
	})
	if err != nil {
		c.apply(epoch, func() {
			c.engine.FailPending(tempID)
			c.recomputeAwaitingLocked()
		})
		c.notify()
		c.emit(ctx, EventSendFailed, observability.LevelWarning, "session.Send", map[string]any{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return err
	}

	if conversationID == "" && receipt.ConversationID != "" {
		// The server created the conversation implicitly on first message.
		c.adoptConversation(ctx, epoch, receipt.ConversationID)
	}

	time.AfterFunc(c.cfg.BackfillDelay, func() {
		c.backfill(context.Background(), epoch)
	})

	c.emit(ctx, EventSend, observability.LevelInfo, "session.Send", map[string]any{
		"conversation_id": receipt.ConversationID,
		"message_id":      receipt.MessageID,
		"content_length":  len(text),
	})
	return nil
}

// OnIncoming reconciles one push-delivered message into the session. A
// message carrying an unfamiliar conversation id adopts that id going
// forward: the guest bootstrap race can deliver before the id is locally
// known.
func (c *Controller) OnIncoming(msg chat.Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if msg.ConversationID != "" && msg.ConversationID != c.conversationID {
		c.conversationID = msg.ConversationID
	}
	c.engine.Apply(msg)
	c.recomputeAwaitingLocked()
	c.mu.Unlock()
	c.notify()

	c.emit(context.Background(), EventIncoming, observability.LevelVerbose, "session.OnIncoming", map[string]any{
		"conversation_id": msg.ConversationID,
		"message_id":      msg.ID,
		"sender_role":     string(msg.SenderRole),
	})
}

// OnModeSignal handles a status-changed notification. Signals for other
// conversations are ignored; a matching signal triggers a fresh status
// fetch, with fetch failure failing open to AI mode.
func (c *Controller) OnModeSignal(ctx context.Context, conversationID string) {
	c.mu.Lock()
	if c.closed || conversationID == "" || conversationID != c.conversationID {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	c.mu.Unlock()

	c.refreshMode(ctx, epoch, conversationID)
}

// Snapshot returns the current read-only view for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ConversationID:   c.conversationID,
		Messages:         c.store.Messages(),
		HasMoreOlder:     c.cursor.HasMoreOlder(),
		IsLoadingOlder:   c.loadingOlder,
		Mode:             c.mode.Mode(),
		AwaitingResponse: c.awaiting.Value(),
	}
}

// Close tears the session down: timers stop, push topics unsubscribe, and
// results of still in-flight fetches are discarded. No server-side teardown
// is triggered.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.epoch++
	c.awaiting.Disarm()
	stale := c.unsubscribers
	c.unsubscribers = nil
	c.mu.Unlock()

	for _, unsubscribe := range stale {
		unsubscribe()
	}
	return nil
}

// resolveConversation returns the conversation id for the identity: guests
// use the local cache and fall back to an explicit bootstrap call, customers
// look up their most recent conversation.
func (c *Controller) resolveConversation(ctx context.Context, who Identity) (string, error) {
	if !who.Guest() {
		return c.client.LatestConversation(ctx, who.CustomerID)
	}

	cached, err := c.cache.Load(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, identity.ErrNotCached) {
		c.emit(ctx, EventOpenFailed, observability.LevelWarning, "session.Open", map[string]any{
			"error": err.Error(),
		})
	}

	created, err := c.client.InitConversation(ctx)
	if err != nil {
		return "", err
	}
	if err := c.cache.Save(ctx, created); err != nil {
		c.emit(ctx, EventOpenFailed, observability.LevelWarning, "session.Open", map[string]any{
			"error": err.Error(),
		})
	}
	return created, nil
}

// adoptConversation records the conversation id and subscribes its message
// topic. Safe to call from any continuation holding a still-current epoch.
func (c *Controller) adoptConversation(ctx context.Context, epoch int, conversationID string) {
	adopted := c.apply(epoch, func() {
		c.conversationID = conversationID
	})
	if !adopted {
		return
	}
	c.notify()

	if c.subscriber != nil {
		unsubscribe, err := c.subscriber.Subscribe(push.ConversationTopic(conversationID), func(_ context.Context, ev push.Event) {
			var msg chat.Message
			if err := ev.Decode(&msg); err != nil {
				c.emit(context.Background(), EventIncoming, observability.LevelWarning, "session.push", map[string]any{
					"error": err.Error(),
				})
				return
			}
			c.OnIncoming(msg)
		})
		if err == nil {
			c.retainUnsubscriber(epoch, unsubscribe)
		}
	}

	c.emit(ctx, EventAdopted, observability.LevelVerbose, "session.adopt", map[string]any{
		"conversation_id": conversationID,
	})
}

// subscribeStatus registers the global status-changed topic for this epoch.
func (c *Controller) subscribeStatus(epoch int) {
	if c.subscriber == nil {
		return
	}

	unsubscribe, err := c.subscriber.Subscribe(push.TopicStatus, func(ctx context.Context, ev push.Event) {
		var conversationID string
		if err := ev.Decode(&conversationID); err != nil {
			return
		}
		c.OnModeSignal(ctx, conversationID)
	})
	if err == nil {
		c.retainUnsubscriber(epoch, unsubscribe)
	}
}

// retainUnsubscriber keeps an unsubscribe function for teardown, or runs it
// immediately when the session moved on while subscribing.
func (c *Controller) retainUnsubscriber(epoch int, unsubscribe func()) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		unsubscribe()
		return
	}
	c.unsubscribers = append(c.unsubscribers, unsubscribe)
	c.mu.Unlock()
}

// refreshMode fetches the serving status and applies it, failing open to AI.
func (c *Controller) refreshMode(ctx context.Context, epoch int, conversationID string) {
	status, err := c.client.FetchStatus(ctx, conversationID)

	var mode chat.Mode
	applied := c.apply(epoch, func() {
		if err != nil {
			mode = c.mode.FailOpen()
		} else {
			mode = c.mode.Apply(status)
		}
		c.recomputeAwaitingLocked()
	})
	if !applied {
		return
	}
	c.notify()

	c.emit(ctx, EventModeChange, observability.LevelInfo, "session.mode", map[string]any{
		"conversation_id": conversationID,
		"mode":            string(mode),
		"fail_open":       err != nil,
	})
}

// backfill re-fetches page 0 once after a successful send, covering the race
// where the push channel was not yet subscribed when the confirmation was
// emitted. Applying the page is idempotent: reconciliation dedups by id.
func (c *Controller) backfill(ctx context.Context, epoch int) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch || c.conversationID == "" {
		c.mu.Unlock()
		return
	}
	conversationID := c.conversationID
	c.mu.Unlock()

	page, err := c.client.FetchPage(ctx, conversationID, 0, c.cfg.PageSize)
	if err != nil {
		c.emit(ctx, EventBackfill, observability.LevelWarning, "session.backfill", map[string]any{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return
	}

	c.apply(epoch, func() {
		c.engine.ApplyPage(ascending(page.Content))
		c.recomputeAwaitingLocked()
	})
	c.notify()

	c.emit(ctx, EventBackfill, observability.LevelVerbose, "session.backfill", map[string]any{
		"conversation_id": conversationID,
		"messages":        len(page.Content),
	})
}

// onAwaitTimeout is the safety-valve timer callback.
func (c *Controller) onAwaitTimeout(epoch int) {
	expired := c.apply(epoch, func() {
		c.awaiting.Expire()
	})
	if !expired {
		return
	}
	c.notify()

	c.emit(context.Background(), EventAwaitingTimeout, observability.LevelWarning, "session.awaiting", nil)
}

// apply runs fn under the lock when the captured epoch is still current.
// Stale continuations and calls after Close are dropped.
func (c *Controller) apply(epoch int, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.epoch != epoch {
		return false
	}
	fn()
	return true
}

// recomputeAwaitingLocked re-derives the awaiting indicator and disarms the
// safety valve once nothing is pending. Callers hold the lock.
func (c *Controller) recomputeAwaitingLocked() {
	last, exists := c.store.Last()
	if !c.awaiting.Recompute(last, exists, c.mode.Mode()) {
		c.awaiting.Disarm()
	}
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

func (c *Controller) emit(ctx context.Context, eventType observability.EventType, level observability.Level, source string, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}

// ascending returns page content oldest-first; pages arrive newest-first.
func ascending(msgs []chat.Message) []chat.Message {
	out := make([]chat.Message, len(msgs))
	for i, msg := range msgs {
		out[len(msgs)-1-i] = msg
	}
	return out
}
