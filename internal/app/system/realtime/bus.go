// Package realtime delivers per-user events over a single pub/sub transport.
// Redis is the shared transport; MemoryBus stands in for single-process
// deployments and tests. Server-sent-event streams subscribe to the same bus,
// so there is exactly one fan-out path.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dalemusser/circlehub/internal/app/system/metrics"
)

// ErrBusClosed is returned by Subscribe after Close.
var ErrBusClosed = errors.New("realtime: bus closed")

// Event names published to user channels.
const (
	EventConnectionRequest   = "connection-request"
	EventConnectionAccepted  = "connection-accepted"
	EventConnectionDeclined  = "connection-declined"
	EventConnectionCancelled = "connection-cancelled"
	EventConnectionRemoved   = "connection-removed"
	EventNewFollower         = "new-follower"
	EventNewMessage          = "new-message"
	EventMessagesSeen        = "messages-seen"
	EventNewComment          = "new-comment"
	EventPostLiked           = "post-liked"
)

// SubscriberBuffer is the per-subscription queue length. Events published to
// a full queue are dropped.
const SubscriberBuffer = 32

// Event is one message on a user channel.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Bus publishes events to user channels and subscribes to them.
type Bus interface {
	Publish(ctx context.Context, userID, event string, payload any) error
	Subscribe(ctx context.Context, userID string) (*Subscription, error)
	Close() error
}

// Channel returns the pub/sub channel name for a user.
func Channel(userID string) string {
	return "user-" + userID
}

// Subscription receives events for one user until Close is called.
type Subscription struct {
	C <-chan Event

	once    sync.Once
	closeFn func()
}

func newSubscription(c <-chan Event, closeFn func()) *Subscription {
	metrics.Subscriptions.Inc()
	return &Subscription{C: c, closeFn: closeFn}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.closeFn()
		metrics.Subscriptions.Dec()
	})
}

func encode(event string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: event, Data: data}, nil
}
