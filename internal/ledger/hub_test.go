package ledger

import (
	"context"
	"testing"
)

func TestHubCoalescesPendingEvents(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("u1")
	defer cancel()

	for i := 0; i < 5; i++ {
		_ = h.Publish(context.Background(), Change{UserID: "u1", Kind: KindTransaction})
	}
	<-ch
	select {
	case c := <-ch:
		t.Fatalf("expected a single pending event, got another %+v", c)
	default:
	}
}

func TestHubScopesByUser(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("u1")
	defer cancel()

	_ = h.Publish(context.Background(), Change{UserID: "u2"})
	select {
	case c := <-ch:
		t.Fatalf("u1 received u2's change %+v", c)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("u1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if h.Subscribers("u1") != 0 {
		t.Fatal("subscriber not removed")
	}
}
