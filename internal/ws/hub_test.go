package ws

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := &Client{send: make(chan Message, 1), logger: zap.NewNop()}
	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Errorf("want 1 client, got %d", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("want 0 clients, got %d", hub.ClientCount())
	}

	// Unregister closed the send channel.
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed after unregister")
	}

	// Double unregister is a no-op.
	hub.Unregister(c)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a := &Client{send: make(chan Message, 1), logger: zap.NewNop()}
	b := &Client{send: make(chan Message, 1), logger: zap.NewNop()}
	hub.Register(a)
	hub.Register(b)

	msg := Message{Type: MessageStatusChanged, Timestamp: time.Now()}
	hub.Broadcast(msg)

	for _, c := range []*Client{a, b} {
		select {
		case got := <-c.send:
			if got.Type != MessageStatusChanged {
				t.Errorf("wrong message type: %s", got.Type)
			}
		default:
			t.Error("client did not receive broadcast")
		}
	}
}

func TestHubBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := &Client{send: make(chan Message, 1), logger: zap.NewNop()}
	hub.Register(c)

	// Second broadcast must not block even though the buffer is full.
	done := make(chan struct{})
	go func() {
		hub.Broadcast(Message{Type: MessageStatusChanged})
		hub.Broadcast(Message{Type: MessageStatusChanged})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}
