package realtime

import (
	"context"
	"sync"

	"github.com/dalemusser/circlehub/internal/app/system/metrics"
)

// MemoryBus is an in-process Bus. It only reaches subscribers in the same
// process.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memSub]struct{}
	closed bool
}

type memSub struct {
	ch chan Event
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memSub]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, userID, event string, payload any) error {
	ev, err := encode(event, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[userID] {
		select {
		case s.ch <- ev:
		default:
			metrics.EventsPublished.WithLabelValues(event, "dropped").Inc()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, userID string) (*Subscription, error) {
	s := &memSub{ch: make(chan Event, SubscriberBuffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*memSub]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	return newSubscription(s.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[userID]; ok {
			if _, ok := set[s]; ok {
				delete(set, s)
				close(s.ch)
			}
			if len(set) == 0 {
				delete(b.subs, userID)
			}
		}
	}), nil
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
	}
	b.subs = make(map[string]map[*memSub]struct{})
	b.closed = true
	return nil
}
