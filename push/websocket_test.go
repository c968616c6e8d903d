package push_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/freshplate/supportchat/chat"
	"github.com/freshplate/supportchat/push"
)

// pushGateway is a minimal server double: it accepts one connection, records
// control frames, and lets the test inject event frames.
func pushGateway(t *testing.T, serve func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("Accept() error = %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "server done")

		serve(r.Context(), conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialWebSocket_RequiresURL(t *testing.T) {
	if _, err := push.DialWebSocket(context.Background(), push.WebSocketConfig{}); err == nil {
		t.Error("DialWebSocket() should fail without a URL")
	}
}

func TestWebSocketSubscriber_DeliversEvents(t *testing.T) {
	url := pushGateway(t, func(ctx context.Context, conn *websocket.Conn) {
		var ctl struct {
			Action string `json:"action"`
			Topic  string `json:"topic"`
		}
		if err := wsjson.Read(ctx, conn, &ctl); err != nil {
			t.Errorf("read control frame: %v", err)
			return
		}
		if ctl.Action != "subscribe" || ctl.Topic != "chat.conversation.c-1" {
			t.Errorf("control frame = %+v", ctl)
		}

		msg := chat.NewMessage("c-1", chat.RoleEmployee, "an agent has joined")
		msg.ID = "m-7"
		if err := wsjson.Write(ctx, conn, map[string]any{
			"topic":     ctl.Topic,
			"data":      msg,
			"timestamp": time.Now(),
		}); err != nil {
			t.Errorf("write event frame: %v", err)
			return
		}

		// Hold the connection open until the client closes it.
		var discard any
		_ = wsjson.Read(ctx, conn, &discard)
	})

	ws, err := push.DialWebSocket(context.Background(), push.WebSocketConfig{URL: url})
	if err != nil {
		t.Fatalf("DialWebSocket() error = %v", err)
	}
	defer ws.Close()

	received := make(chan push.Event, 1)
	unsubscribe, err := ws.Subscribe(push.ConversationTopic("c-1"), func(_ context.Context, ev push.Event) {
		received <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	select {
	case ev := <-received:
		var got chat.Message
		if err := ev.Decode(&got); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.ID != "m-7" || got.SenderRole != chat.RoleEmployee {
			t.Errorf("decoded message = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
