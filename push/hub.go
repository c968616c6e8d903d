package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HubConfig defines configuration for a Hub instance.
type HubConfig struct {
	Name              string
	ChannelBufferSize int
	Logger            *slog.Logger
}

// DefaultHubConfig returns a HubConfig with sensible defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Name:              "default",
		ChannelBufferSize: 100,
		Logger:            slog.Default(),
	}
}

// Merge applies non-zero values from source into c.
func (c *HubConfig) Merge(source *HubConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.ChannelBufferSize > 0 {
		c.ChannelBufferSize = source.ChannelBufferSize
	}
	if source.Logger != nil {
		c.Logger = source.Logger
	}
}

type subscription struct {
	id      string
	topic   string
	handler Handler
	channel *EventChannel[Event]
	cancel  context.CancelFunc
}

// Hub is an in-process topic broker implementing Subscriber. Each
// subscription owns a bounded channel drained by a dedicated delivery
// goroutine, so a slow handler delays only its own subscription.
type Hub struct {
	name string

	subscriptions map[string]map[string]*subscription
	subsMutex     sync.RWMutex

	channelBufferSize int
	logger            *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a Hub bound to ctx.
func NewHub(ctx context.Context, cfg HubConfig) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)

	return &Hub{
		name:              cfg.Name,
		subscriptions:     make(map[string]map[string]*subscription),
		channelBufferSize: cfg.ChannelBufferSize,
		logger:            cfg.Logger,
		ctx:               hubCtx,
		cancel:            cancel,
	}
}

// Subscribe registers a handler for a topic and returns its unsubscribe
// function.
func (h *Hub) Subscribe(topic string, handler Handler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("handler must not be nil")
	}
	if err := h.ctx.Err(); err != nil {
		return nil, fmt.Errorf("hub is shut down: %w", err)
	}

	subCtx, subCancel := context.WithCancel(h.ctx)
	sub := &subscription{
		id:      uuid.Must(uuid.NewV7()).String(),
		topic:   topic,
		handler: handler,
		channel: NewEventChannel[Event](subCtx, h.channelBufferSize),
		cancel:  subCancel,
	}

	h.subsMutex.Lock()
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[string]*subscription)
	}
	h.subscriptions[topic][sub.id] = sub
	h.subsMutex.Unlock()

	h.wg.Add(1)
	go h.deliver(subCtx, sub)

	h.logger.Debug(
		"subscribed to topic",
		slog.String("hub_name", h.name),
		slog.String("topic", topic),
		slog.String("subscription_id", sub.id),
	)

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(sub) })
	}, nil
}

// Publish delivers an event to every subscription on the topic. Delivery to
// a full subscription buffer blocks until ctx ends; failures are logged, not
// returned.
func (h *Hub) Publish(ctx context.Context, topic string, data any) {
	event := Event{Topic: topic, Data: data, Timestamp: time.Now()}

	h.subsMutex.RLock()
	subscribers := make([]*subscription, 0, len(h.subscriptions[topic]))
	for _, sub := range h.subscriptions[topic] {
		subscribers = append(subscribers, sub)
	}
	h.subsMutex.RUnlock()

	delivered := 0
	for _, sub := range subscribers {
		if err := sub.channel.Send(ctx, event); err != nil {
			h.logger.Warn(
				"failed to deliver event",
				slog.String("hub_name", h.name),
				slog.String("topic", topic),
				slog.String("subscription_id", sub.id),
				slog.String("error", err.Error()),
			)
		} else {
			delivered++
		}
	}

	h.logger.Debug(
		"event published",
		slog.String("hub_name", h.name),
		slog.String("topic", topic),
		slog.Int("subscribers", len(subscribers)),
		slog.Int("delivered", delivered),
	)
}

// Shutdown stops delivery and waits for all delivery goroutines to exit.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("hub shutdown timeout after %v", timeout)
	}
}

func (h *Hub) deliver(ctx context.Context, sub *subscription) {
	defer h.wg.Done()

	for {
		event, err := sub.channel.Receive(ctx)
		if err != nil {
			return
		}
		sub.handler(ctx, event)
	}
}

func (h *Hub) unsubscribe(sub *subscription) {
	h.subsMutex.Lock()
	if subs, exists := h.subscriptions[sub.topic]; exists {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(h.subscriptions, sub.topic)
		}
	}
	h.subsMutex.Unlock()

	sub.cancel()

	h.logger.Debug(
		"unsubscribed from topic",
		slog.String("hub_name", h.name),
		slog.String("topic", sub.topic),
		slog.String("subscription_id", sub.id),
	)
}
