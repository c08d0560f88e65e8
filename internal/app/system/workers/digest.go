// internal/app/system/workers/digest.go
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	"github.com/dalemusser/waffle/pantry/jobs"
	"go.uber.org/zap"
)

// DigestScheduler enqueues the daily unseen-message digest. Each day's job
// carries the dedupe key "digest:YYYY-MM-DD", so any number of processes
// produce exactly one job per day.
type DigestScheduler struct {
	orch     *workflows.Orchestrator
	log      *zap.Logger
	schedule *jobs.CronExpr
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewDigestScheduler(orch *workflows.Orchestrator, logger *zap.Logger, hourUTC int) (*DigestScheduler, error) {
	schedule, err := DigestSchedule(hourUTC)
	if err != nil {
		return nil, err
	}
	return &DigestScheduler{
		orch:     orch,
		log:      logger,
		schedule: schedule,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}, nil
}

// DigestSchedule is the daily cron expression "0 <hourUTC> * * *".
func DigestSchedule(hourUTC int) (*jobs.CronExpr, error) {
	expr, err := jobs.ParseCron(fmt.Sprintf("0 %d * * *", hourUTC))
	if err != nil {
		return nil, fmt.Errorf("digest schedule: %w", err)
	}
	return expr, nil
}

// DigestKey is the dedupe key for the digest that runs at t.
func DigestKey(t time.Time) string {
	return "digest:" + t.UTC().Format("2006-01-02")
}

// Start begins the scheduling loop.
func (s *DigestScheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info("digest scheduler started", zap.String("cron", s.schedule.String()))
}

// Stop signals the scheduler to stop and waits for it to finish.
func (s *DigestScheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("digest scheduler stopped")
}

func (s *DigestScheduler) run() {
	defer s.wg.Done()

	for {
		next, err := s.EnqueueNext(context.Background())
		if err != nil {
			s.log.Error("enqueue digest failed", zap.Error(err))
			next = s.now().Add(time.Minute)
		}

		timer := time.NewTimer(time.Until(next) + time.Second)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// EnqueueNext schedules the next digest run and returns its time.
func (s *DigestScheduler) EnqueueNext(ctx context.Context) (time.Time, error) {
	next := s.schedule.Next(s.now().UTC())
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.orch.Schedule(ctx, workflows.FnMessagesDigest, nil, next, DigestKey(next)); err != nil {
		return next, err
	}
	return next, nil
}
