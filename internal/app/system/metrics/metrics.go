// Package metrics exposes the app's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsPublished counts realtime events by event name and outcome
	// ("ok" or "error").
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlehub",
		Subsystem: "realtime",
		Name:      "events_published_total",
		Help:      "Realtime events published, by event and outcome.",
	}, []string{"event", "outcome"})

	// StreamsOpen tracks open SSE streams.
	StreamsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlehub",
		Subsystem: "realtime",
		Name:      "streams_open",
		Help:      "Currently open event streams.",
	})

	// Subscriptions tracks open bus subscriptions in this process.
	Subscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlehub",
		Subsystem: "realtime",
		Name:      "subscriptions_open",
		Help:      "Currently open realtime bus subscriptions.",
	})

	// JobsRun counts scheduled job executions by job name and outcome
	// ("done", "retry", "failed").
	JobsRun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlehub",
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Scheduled job executions, by job and outcome.",
	}, []string{"job", "outcome"})

	// ConnectionTransitions counts connection state changes by transition.
	ConnectionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlehub",
		Subsystem: "connections",
		Name:      "transitions_total",
		Help:      "Connection state transitions, by transition.",
	}, []string{"transition"})

	// Documents reports collection totals sampled by the stats task.
	Documents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "circlehub",
		Subsystem: "store",
		Name:      "documents",
		Help:      "Document totals, by kind.",
	}, []string{"kind"})
)

// Registry holds this app's collectors plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		EventsPublished,
		StreamsOpen,
		Subscriptions,
		JobsRun,
		ConnectionTransitions,
		Documents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
