// Package workflows defines the delayed-job functions and the orchestrator
// that schedules them. Jobs persist in scheduled_jobs and are executed by
// workers.JobRunner; payloads carry identifiers only and every function
// re-reads current state when it runs, treating a missing document as done.
package workflows

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	jobstore "github.com/dalemusser/circlehub/internal/app/store/jobs"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.uber.org/zap"
)

// Event and function names.
const (
	EventConnectionRequestSent = "connection/request.sent"
	FnConnectionReminder       = "connection/reminder"
	EventStoryCreated          = "story/created"
	FnStoryExpire              = "story/expire"
	FnMessagesDigest           = "messages/digest"
)

// ErrPermanent marks a failure that retrying cannot fix (a malformed
// payload). The runner fails such jobs immediately.
var ErrPermanent = errors.New("workflows: permanent failure")

// Func is one workflow function.
type Func func(ctx context.Context, payload map[string]string) error

// Registry maps function names to implementations.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Func)}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.fns))
	for n := range r.fns {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Enqueuer persists jobs. *jobstore.Store implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload map[string]string, runAt time.Time, dedupeKey string) (models.Job, error)
}

// Orchestrator triggers workflow functions by enqueuing jobs.
type Orchestrator struct {
	jobs Enqueuer
	log  *zap.Logger
}

func NewOrchestrator(jobs Enqueuer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{jobs: jobs, log: logger}
}

// Send triggers the function named event to run as soon as a worker is free.
func (o *Orchestrator) Send(ctx context.Context, event string, payload map[string]string) (models.Job, error) {
	return o.jobs.Enqueue(ctx, event, payload, time.Time{}, "")
}

// Schedule enqueues name to run at runAt. A non-empty dedupeKey makes the call
// idempotent: scheduling an already-scheduled key is not an error.
func (o *Orchestrator) Schedule(ctx context.Context, name string, payload map[string]string, runAt time.Time, dedupeKey string) error {
	j, err := o.jobs.Enqueue(ctx, name, payload, runAt, dedupeKey)
	if errors.Is(err, jobstore.ErrDuplicateJob) {
		o.log.Debug("job already scheduled", zap.String("job", name), zap.String("dedupe_key", dedupeKey))
		return nil
	}
	if err != nil {
		return err
	}
	o.log.Debug("job scheduled",
		zap.String("job", name),
		zap.String("job_id", j.ID.Hex()),
		zap.Time("run_at", j.RunAt))
	return nil
}

// Trigger is the best-effort form of Send used by request handlers: failures
// are logged and swallowed.
func (o *Orchestrator) Trigger(ctx context.Context, event string, payload map[string]string) {
	if o == nil {
		return
	}
	if _, err := o.Send(ctx, event, payload); err != nil {
		o.log.Warn("workflow trigger failed", zap.String("event", event), zap.Error(err))
	}
}
