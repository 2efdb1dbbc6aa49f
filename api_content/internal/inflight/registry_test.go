package inflight

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func mustRegister(t *testing.T, r *Registry, requestID, owner string) (context.Context, func()) {
	t.Helper()
	ctx, release, err := r.Register(context.Background(), requestID, owner)
	if err != nil {
		t.Fatalf("Register(%s): %v", requestID, err)
	}
	return ctx, release
}

func TestRegistryCancelByOwner(t *testing.T) {
	r := NewRegistry()
	ctx, release := mustRegister(t, r, "req-1", "user-a")
	defer release()

	if err := r.Cancel("req-1", "user-b"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if ctx.Err() != nil {
		t.Fatal("non-owner cancel must not cancel")
	}
	if err := r.Cancel("req-1", "user-a"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatalf("ctx.Err() = %v, want Canceled", ctx.Err())
	}
	if err := r.Cancel("req-1", "user-a"); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("second cancel err = %v", err)
	}
}

func TestRegistryReleaseRemovesEntry(t *testing.T) {
	r := NewRegistry()
	ctx, release := mustRegister(t, r, "req-1", "user-a")
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	release()
	if r.Len() != 0 || ctx.Err() == nil {
		t.Fatalf("release should remove and cancel: len=%d err=%v", r.Len(), ctx.Err())
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	for _, owner := range []string{"user-a", "user-b"} {
		t.Run(owner, func(t *testing.T) {
			r := NewRegistry()
			ctx, release := mustRegister(t, r, "req-1", "user-a")
			defer release()

			if _, _, err := r.Register(context.Background(), "req-1", owner); !errors.Is(err, ErrDuplicateRequest) {
				t.Fatalf("err = %v, want ErrDuplicateRequest", err)
			}
			if r.Len() != 1 {
				t.Fatalf("Len = %d", r.Len())
			}
			if err := r.Cancel("req-1", "user-a"); err != nil {
				t.Fatalf("original owner cancel: %v", err)
			}
			if ctx.Err() == nil {
				t.Fatal("expected original generation cancelled")
			}
		})
	}
}

func TestRegistryStaleReleaseKeepsNewEntry(t *testing.T) {
	r := NewRegistry()
	_, first := mustRegister(t, r, "req-1", "user-a")
	first()

	ctx, second := mustRegister(t, r, "req-1", "user-a")
	defer second()
	first()

	if r.Len() != 1 || ctx.Err() != nil {
		t.Fatalf("stale release touched the new entry: len=%d err=%v", r.Len(), ctx.Err())
	}
}

func TestLocalCanceller(t *testing.T) {
	r := NewRegistry()
	ctx, release := mustRegister(t, r, "req-1", "user-a")
	defer release()

	var c Canceller = Local{r}
	outcome, err := c.Cancel(context.Background(), "req-1", "user-a")
	if err != nil || outcome != Cancelled {
		t.Fatalf("Cancel = %v, %v", outcome, err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected context cancelled")
	}
	if _, err := c.Cancel(context.Background(), "req-2", "user-a"); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("err = %v, want ErrUnknownRequest", err)
	}
}

func TestBroadcasterCancelsOnOtherInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clientA := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	clientB := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer clientB.Close()

	regA, regB := NewRegistry(), NewRegistry()
	a := NewBroadcaster(regA, clientA, logger)
	b := NewBroadcaster(regB, clientB, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	ready := make(chan struct{})
	go func() { _ = b.Start(ctx, ready) }()
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not ready")
	}

	genCtx, release := mustRegister(t, regB, "req-9", "user-a")
	defer release()

	outcome, err := a.Cancel(ctx, "req-9", "user-a")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if outcome != Forwarded {
		t.Fatalf("outcome = %v, want Forwarded", outcome)
	}

	select {
	case <-genCtx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("remote generation was not cancelled")
	}
}

func TestBroadcasterLocalCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	reg := NewRegistry()
	ctx, release := mustRegister(t, reg, "req-1", "user-a")
	defer release()

	b := NewBroadcaster(reg, client, logrus.New())
	if _, err := b.Cancel(context.Background(), "req-1", "user-b"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	outcome, err := b.Cancel(context.Background(), "req-1", "user-a")
	if err != nil || outcome != Cancelled {
		t.Fatalf("Cancel = %v, %v", outcome, err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected context cancelled")
	}
}
