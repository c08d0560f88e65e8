package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"github.com/dalemusser/waffle/pantry/sse"
)

// DefaultPingInterval keeps idle proxies from closing the stream.
const DefaultPingInterval = 25 * time.Second

// Stream writes sub's events to w as server-sent events until ctx is done or
// the subscription ends. It opens with a
// ": connected" comment and sends ": ping" every ping.
func Stream(ctx context.Context, w http.ResponseWriter, r *http.Request, sub *Subscription, ping time.Duration) error {
	stream, err := sse.NewStream(w, r)
	if err != nil {
		return err
	}
	defer stream.Close()

	metrics.StreamsOpen.Inc()
	defer metrics.StreamsOpen.Dec()

	if err := stream.SendComment("connected"); err != nil {
		return err
	}

	if ping <= 0 {
		ping = DefaultPingInterval
	}
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := stream.Send(&sse.Event{Event: ev.Name, Data: string(ev.Data)}); err != nil {
				return err
			}
		case <-ticker.C:
			if err := stream.SendComment("ping"); err != nil {
				return err
			}
		}
	}
}
