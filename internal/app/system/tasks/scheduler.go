// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a periodic housekeeping task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each Job on its own ticker until Stop.
type Scheduler struct {
	jobs    []Job
	log     *zap.Logger
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(logger *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		log:     logger,
		timeout: 30 * time.Second,
		stopCh:  make(chan struct{}),
	}
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
	}
	s.log.Info("task scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop signals every job loop to exit and waits for them.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("task scheduler stopped")
}

func (s *Scheduler) loop(j Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce(j)
		}
	}
}

func (s *Scheduler) runOnce(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := j.Run(ctx); err != nil {
		s.log.Error("task failed", zap.String("task", j.Name), zap.Error(err))
	}
}
