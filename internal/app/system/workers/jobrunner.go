// internal/app/system/workers/jobrunner.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jobstore "github.com/dalemusser/circlehub/internal/app/store/jobs"
	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobRunnerConfig tunes the job runner. Zero values take the defaults.
type JobRunnerConfig struct {
	PollInterval time.Duration // how often to look for due jobs (5s)
	Lease        time.Duration // how long a claim is held before others may reclaim it (2m)
	MaxAttempts  int           // attempts before a job is marked failed (5)
	BaseBackoff  time.Duration // first retry delay, doubled per attempt (30s)
	MaxBackoff   time.Duration // retry delay cap (1h)
}

func (c *JobRunnerConfig) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = 2 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Hour
	}
}

// JobRunner is a background worker that claims due scheduled jobs and runs
// the matching workflow function. Several processes may run one each; claims
// are atomic in the store.
type JobRunner struct {
	jobs     *jobstore.Store
	registry *workflows.Registry
	log      *zap.Logger
	cfg      JobRunnerConfig
	owner    string
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewJobRunner creates a job runner. Each runner gets a unique owner id used
// as the claim lock.
func NewJobRunner(jobs *jobstore.Store, registry *workflows.Registry, logger *zap.Logger, cfg JobRunnerConfig) *JobRunner {
	cfg.defaults()
	return &JobRunner{
		jobs:     jobs,
		registry: registry,
		log:      logger,
		cfg:      cfg,
		owner:    "runner-" + uuid.NewString(),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background polling loop.
func (w *JobRunner) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("job runner started",
		zap.String("owner", w.owner),
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("max_attempts", w.cfg.MaxAttempts))
}

// Stop signals the runner to stop and waits for the current job to finish.
func (w *JobRunner) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("job runner stopped")
}

func (w *JobRunner) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.RunDue(context.Background()); err != nil {
				w.log.Error("job runner poll failed", zap.Error(err))
			}
		}
	}
}

// RunDue claims and runs due jobs until none remain or Stop is called. It
// returns the number of jobs processed.
func (w *JobRunner) RunDue(ctx context.Context) (int, error) {
	n := 0
	for {
		select {
		case <-w.stopCh:
			return n, nil
		default:
		}

		claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		j, err := w.jobs.ClaimDue(claimCtx, w.owner, w.now().UTC(), w.cfg.Lease)
		cancel()
		if err != nil {
			return n, err
		}
		if j == nil {
			return n, nil
		}
		w.execute(ctx, j)
		n++
	}
}

func (w *JobRunner) execute(ctx context.Context, j *models.Job) {
	log := w.log.With(
		zap.String("job", j.Name),
		zap.String("job_id", j.ID.Hex()),
		zap.Int("attempt", j.Attempts))

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.Lease)
	defer cancel()

	err := w.invoke(runCtx, j)

	finishCtx, cancelFinish := context.WithTimeout(ctx, 5*time.Second)
	defer cancelFinish()

	switch {
	case err == nil:
		if e := w.jobs.Complete(finishCtx, j.ID, w.owner); e != nil {
			log.Error("mark job done failed", zap.Error(e))
		}
		metrics.JobsRun.WithLabelValues(j.Name, "done").Inc()
		log.Info("job done")

	case errors.Is(err, workflows.ErrPermanent) || j.Attempts >= w.cfg.MaxAttempts:
		if e := w.jobs.Fail(finishCtx, j.ID, w.owner, err.Error()); e != nil {
			log.Error("mark job failed failed", zap.Error(e))
		}
		metrics.JobsRun.WithLabelValues(j.Name, "failed").Inc()
		log.Error("job failed", zap.Error(err))

	default:
		next := w.now().Add(w.Backoff(j.Attempts))
		if e := w.jobs.Retry(finishCtx, j.ID, w.owner, next, err.Error()); e != nil {
			log.Error("reschedule job failed", zap.Error(e))
		}
		metrics.JobsRun.WithLabelValues(j.Name, "retry").Inc()
		log.Warn("job will retry", zap.Time("next_run", next), zap.Error(err))
	}
}

func (w *JobRunner) invoke(ctx context.Context, j *models.Job) (err error) {
	fn, ok := w.registry.Lookup(j.Name)
	if !ok {
		return fmt.Errorf("%w: no function registered for %q", workflows.ErrPermanent, j.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, j.Payload)
}

// Backoff returns the delay before retrying after the given attempt:
// BaseBackoff doubled per prior attempt, capped at MaxBackoff.
func (w *JobRunner) Backoff(attempt int) time.Duration {
	d := w.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= w.cfg.MaxBackoff {
			return w.cfg.MaxBackoff
		}
	}
	return d
}
