package push_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/freshplate/supportchat/chat"
	"github.com/freshplate/supportchat/push"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub(t *testing.T) *push.Hub {
	t.Helper()

	cfg := push.DefaultHubConfig()
	cfg.Name = "test-hub"

	h := push.NewHub(context.Background(), cfg)
	t.Cleanup(func() {
		if err := h.Shutdown(5 * time.Second); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return h
}

func TestConversationTopic(t *testing.T) {
	if got := push.ConversationTopic("c-1"); got != "chat.conversation.c-1" {
		t.Errorf("ConversationTopic(c-1) = %q", got)
	}
}

func TestHub_SubscribeAndPublish(t *testing.T) {
	h := newTestHub(t)

	received := make(chan push.Event, 1)
	unsubscribe, err := h.Subscribe(push.ConversationTopic("c-1"), func(_ context.Context, ev push.Event) {
		received <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	msg := chat.NewMessage("c-1", chat.RoleAI, "your order ships tomorrow")
	msg.ID = "m-1"
	h.Publish(context.Background(), push.ConversationTopic("c-1"), msg)

	select {
	case ev := <-received:
		var got chat.Message
		if err := ev.Decode(&got); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.ID != "m-1" || got.Content != "your order ships tomorrow" {
			t.Errorf("decoded message = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newTestHub(t)

	received := make(chan push.Event, 1)
	unsubscribe, err := h.Subscribe("chat.status", func(_ context.Context, ev push.Event) {
		received <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	unsubscribe()
	unsubscribe() // second call must be a no-op

	h.Publish(context.Background(), "chat.status", "c-1")

	select {
	case <-received:
		t.Error("event delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_TopicIsolation(t *testing.T) {
	h := newTestHub(t)

	received := make(chan push.Event, 1)
	unsubscribe, err := h.Subscribe(push.ConversationTopic("c-1"), func(_ context.Context, ev push.Event) {
		received <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	h.Publish(context.Background(), push.ConversationTopic("c-2"), "wrong conversation")

	select {
	case <-received:
		t.Error("event delivered to a different topic's subscriber")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	h := newTestHub(t)

	first := make(chan push.Event, 1)
	second := make(chan push.Event, 1)

	unsub1, err := h.Subscribe("chat.status", func(_ context.Context, ev push.Event) { first <- ev })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsub1()

	unsub2, err := h.Subscribe("chat.status", func(_ context.Context, ev push.Event) { second <- ev })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsub2()

	h.Publish(context.Background(), "chat.status", "c-9")

	for i, ch := range []chan push.Event{first, second} {
		select {
		case ev := <-ch:
			var id string
			if err := ev.Decode(&id); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if id != "c-9" {
				t.Errorf("subscriber %d got payload %q, want c-9", i+1, id)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d did not receive the event", i+1)
		}
	}
}

func TestHub_SubscribeAfterShutdown(t *testing.T) {
	cfg := push.DefaultHubConfig()
	h := push.NewHub(context.Background(), cfg)

	if err := h.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if _, err := h.Subscribe("chat.status", func(context.Context, push.Event) {}); err == nil {
		t.Error("Subscribe() should fail after shutdown")
	}
}

func TestEvent_Decode(t *testing.T) {
	msg := chat.Message{ID: "m-1", Content: "hello", SenderRole: chat.RoleCustomer}
	raw, _ := json.Marshal(msg)

	tests := []struct {
		name string
		data any
	}{
		{name: "raw json", data: json.RawMessage(raw)},
		{name: "byte slice", data: raw},
		{name: "typed value", data: msg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := push.Event{Topic: "t", Data: tt.data}

			var got chat.Message
			if err := ev.Decode(&got); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.ID != "m-1" || got.Content != "hello" {
				t.Errorf("decoded = %+v", got)
			}
		})
	}
}
