package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func recv(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return realtime.Event{}
}

func TestMemoryBus_DeliversOnlyToTargetUser(t *testing.T) {
	bus := realtime.NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	u1, _ := bus.Subscribe(ctx, "u1")
	u1b, _ := bus.Subscribe(ctx, "u1")
	u2, _ := bus.Subscribe(ctx, "u2")
	defer u1.Close()
	defer u1b.Close()
	defer u2.Close()

	if err := bus.Publish(ctx, "u1", realtime.EventConnectionRequest, map[string]string{"from": "u3"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, sub := range []*realtime.Subscription{u1, u1b} {
		ev := recv(t, sub)
		if ev.Name != realtime.EventConnectionRequest {
			t.Errorf("event = %q", ev.Name)
		}
		var data map[string]string
		if err := json.Unmarshal(ev.Data, &data); err != nil || data["from"] != "u3" {
			t.Errorf("data = %s (%v)", ev.Data, err)
		}
	}
	select {
	case ev := <-u2.C:
		t.Errorf("u2 received %+v", ev)
	default:
	}
}

func TestMemoryBus_DropsWhenSubscriberIsFull(t *testing.T) {
	bus := realtime.NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	sub, _ := bus.Subscribe(ctx, "u1")
	defer sub.Close()
	for i := 0; i < realtime.SubscriberBuffer+10; i++ {
		if err := bus.Publish(ctx, "u1", realtime.EventNewMessage, i); err != nil {
			t.Fatalf("Publish #%d: %v", i, err)
		}
	}
	if got := len(sub.C); got != realtime.SubscriberBuffer {
		t.Errorf("queued = %d, want %d", got, realtime.SubscriberBuffer)
	}
}

func TestMemoryBus_CloseReleasesSubscription(t *testing.T) {
	bus := realtime.NewMemoryBus()
	ctx := context.Background()

	base := promtest.ToFloat64(metrics.Subscriptions)
	sub, _ := bus.Subscribe(ctx, "u1")
	if got := promtest.ToFloat64(metrics.Subscriptions); got != base+1 {
		t.Fatalf("open subscriptions = %v, want %v", got, base+1)
	}
	sub.Close()
	sub.Close() // idempotent
	if got := promtest.ToFloat64(metrics.Subscriptions); got != base {
		t.Errorf("open subscriptions after close = %v, want %v", got, base)
	}
	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}

	_ = bus.Close()
	if _, err := bus.Subscribe(ctx, "u1"); err != realtime.ErrBusClosed {
		t.Errorf("Subscribe after Close err = %v, want ErrBusClosed", err)
	}
}

func TestChannel(t *testing.T) {
	if got := realtime.Channel("abc"); got != "user-abc" {
		t.Errorf("Channel = %q, want user-abc", got)
	}
}
