package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// wireEvent is the JSON frame the push gateway writes. Data stays raw so
// handlers decode it through Event.Decode.
type wireEvent struct {
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// controlFrame is the client→server subscription management message.
type controlFrame struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`
}

// WebSocketConfig holds WebSocketSubscriber initialization parameters.
type WebSocketConfig struct {
	URL    string        // push gateway endpoint, e.g. wss://host/api/chat/push
	Logger *slog.Logger  // defaults to slog.Default
	Dial   time.Duration // dial timeout; defaults to 10s
}

// WebSocketSubscriber implements Subscriber over one WebSocket connection to
// the push gateway. Topic interest is mirrored to the server with
// subscribe/unsubscribe control frames; inbound frames dispatch to local
// handlers in arrival order on the read loop.
type WebSocketSubscriber struct {
	conn   *websocket.Conn
	logger *slog.Logger

	handlers      map[string]map[string]Handler // topic → handler id → handler
	handlersMutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// DialWebSocket connects to the push gateway and starts the read loop.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (*WebSocketSubscriber, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("push: websocket URL is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialTimeout := cfg.Dial
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("push: dial %s: %w", cfg.URL, err)
	}

	wsCtx, cancel := context.WithCancel(ctx)
	ws := &WebSocketSubscriber{
		conn:     conn,
		logger:   logger,
		handlers: make(map[string]map[string]Handler),
		ctx:      wsCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go ws.readLoop()

	return ws, nil
}

// Subscribe registers a local handler and announces topic interest to the
// server on the topic's first handler.
func (ws *WebSocketSubscriber) Subscribe(topic string, handler Handler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("handler must not be nil")
	}
	if err := ws.ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscriber is closed: %w", err)
	}

	id := uuid.Must(uuid.NewV7()).String()

	ws.handlersMutex.Lock()
	first := len(ws.handlers[topic]) == 0
	if ws.handlers[topic] == nil {
		ws.handlers[topic] = make(map[string]Handler)
	}
	ws.handlers[topic][id] = handler
	ws.handlersMutex.Unlock()

	if first {
		if err := ws.sendControl("subscribe", topic); err != nil {
			ws.handlersMutex.Lock()
			delete(ws.handlers[topic], id)
			if len(ws.handlers[topic]) == 0 {
				delete(ws.handlers, topic)
			}
			ws.handlersMutex.Unlock()
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { ws.unsubscribe(topic, id) })
	}, nil
}

// Close tears down the connection and stops the read loop.
func (ws *WebSocketSubscriber) Close() error {
	ws.cancel()
	err := ws.conn.Close(websocket.StatusNormalClosure, "client closed")
	<-ws.done
	return err
}

func (ws *WebSocketSubscriber) unsubscribe(topic, id string) {
	ws.handlersMutex.Lock()
	delete(ws.handlers[topic], id)
	last := len(ws.handlers[topic]) == 0
	if last {
		delete(ws.handlers, topic)
	}
	ws.handlersMutex.Unlock()

	if last && ws.ctx.Err() == nil {
		if err := ws.sendControl("unsubscribe", topic); err != nil {
			ws.logger.Warn(
				"failed to send unsubscribe frame",
				slog.String("topic", topic),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (ws *WebSocketSubscriber) sendControl(action, topic string) error {
	if err := wsjson.Write(ws.ctx, ws.conn, controlFrame{Action: action, Topic: topic}); err != nil {
		return fmt.Errorf("push: %s %s: %w", action, topic, err)
	}
	return nil
}

func (ws *WebSocketSubscriber) readLoop() {
	defer close(ws.done)

	for {
		var frame wireEvent
		if err := wsjson.Read(ws.ctx, ws.conn, &frame); err != nil {
			if ws.ctx.Err() == nil {
				ws.logger.Warn("push connection read failed", slog.String("error", err.Error()))
			}
			ws.cancel()
			return
		}

		ws.handlersMutex.RLock()
		handlers := make([]Handler, 0, len(ws.handlers[frame.Topic]))
		for _, h := range ws.handlers[frame.Topic] {
			handlers = append(handlers, h)
		}
		ws.handlersMutex.RUnlock()

		event := Event{Topic: frame.Topic, Data: frame.Data, Timestamp: frame.Timestamp}
		for _, h := range handlers {
			h(ws.ctx, event)
		}
	}
}
