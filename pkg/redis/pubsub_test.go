package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type cancelMsg struct {
	RequestID string `json:"requestId"`
}

func TestTypedPubSubRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	ps := NewTypedPubSub[cancelMsg](client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	got := make(chan cancelMsg, 1)
	go func() {
		_ = ps.Subscribe(ctx, "cancel", ready, func(m cancelMsg) { got <- m })
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not ready")
	}

	if err := ps.Publish(ctx, "cancel", cancelMsg{RequestID: "r1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case m := <-got:
		if m.RequestID != "r1" {
			t.Fatalf("unexpected message %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestNewUniversalClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewUniversalClient(context.Background(), Config{Addrs: []string{mr.Addr()}})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = client.Close()

	if _, err := NewUniversalClient(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without addresses")
	}
	if _, err := NewUniversalClient(context.Background(), Config{Mode: ModeSentinel, Addrs: []string{mr.Addr()}}); err == nil {
		t.Fatal("expected error for sentinel without master name")
	}
}
