package realtime

import (
	"context"

	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Notifier publishes best-effort: failures are logged and counted but never
// returned, so a committed write is never reported as failed because a
// notification could not be delivered.
type Notifier struct {
	Bus Bus
	Log *zap.Logger
}

func NewNotifier(bus Bus, logger *zap.Logger) *Notifier {
	return &Notifier{Bus: bus, Log: logger}
}

// Notify publishes event to userID's channel.
func (n *Notifier) Notify(ctx context.Context, userID, event string, payload any) {
	if n == nil || n.Bus == nil {
		return
	}
	if err := n.Bus.Publish(ctx, userID, event, payload); err != nil {
		metrics.EventsPublished.WithLabelValues(event, "error").Inc()
		n.Log.Warn("realtime publish failed",
			zap.String("user_id", userID),
			zap.String("event", event),
			zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues(event, "ok").Inc()
}
