package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus publishes to Redis channels named Channel(userID), so every
// process subscribed to a user's channel sees the event. The client belongs
// to the caller; Close only ends the bus's own subscriptions.
type RedisBus struct {
	rdb *redis.Client
	log *zap.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

func NewRedisBus(rdb *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: logger, subs: make(map[*redis.PubSub]struct{})}
}

func (b *RedisBus) Publish(ctx context.Context, userID, event string, payload any) error {
	ev, err := encode(event, payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel(userID), msg).Err()
}

// Subscribe opens a Redis subscription and waits for the server to confirm
// it, so events published after Subscribe returns are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	b.mu.Unlock()

	ps := b.rdb.Subscribe(ctx, Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = ps.Close()
		return nil, ErrBusClosed
	}
	b.subs[ps] = struct{}{}
	b.mu.Unlock()

	out := make(chan Event, SubscriberBuffer)
	done := make(chan struct{})
	in := ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("realtime: bad payload on channel",
						zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
					metrics.EventsPublished.WithLabelValues(ev.Name, "dropped").Inc()
				}
			}
		}
	}()

	return newSubscription(out, func() {
		close(done)
		b.mu.Lock()
		delete(b.subs, ps)
		b.mu.Unlock()
		if err := ps.Close(); err != nil {
			b.log.Debug("realtime: close subscription", zap.Error(err))
		}
	}), nil
}

// Close ends every open subscription and rejects new ones. It leaves the
// Redis client open.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ps := range b.subs {
		if err := ps.Close(); err != nil {
			b.log.Debug("realtime: close subscription", zap.Error(err))
		}
	}
	b.subs = make(map[*redis.PubSub]struct{})
	return nil
}
