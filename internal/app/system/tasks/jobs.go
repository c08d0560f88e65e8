// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	jobstore "github.com/dalemusser/circlehub/internal/app/store/jobs"
	metricsstore "github.com/dalemusser/circlehub/internal/app/store/metrics"
	storystore "github.com/dalemusser/circlehub/internal/app/store/stories"
	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// FinishedJobPurgeJob removes done and failed scheduled jobs older than
// retention so the queue collection stays small.
func FinishedJobPurgeJob(jobs *jobstore.Store, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "finished-job-purge",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := jobs.PurgeFinished(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("purged finished jobs",
					zap.Int64("count", count),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}

// ExpiredStorySweepJob deletes stories past their expiry. This is a backup
// for story/expire jobs that were lost or failed permanently.
func ExpiredStorySweepJob(stories *storystore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "expired-story-sweep",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			count, err := stories.DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("swept expired stories", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// JobQueueStatsJob logs the scheduled-job queue depth by status.
func JobQueueStatsJob(jobs *jobstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "job-queue-stats",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			counts, err := jobs.CountByStatus(ctx)
			if err != nil {
				return err
			}
			logger.Debug("job queue",
				zap.Int64("pending", counts["pending"]),
				zap.Int64("running", counts["running"]),
				zap.Int64("failed", counts["failed"]))
			return nil
		},
	}
}

// CollectionStatsJob samples collection totals into the documents gauge.
func CollectionStatsJob(db *mongo.Database) Job {
	return Job{
		Name:     "collection-stats",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			c := metricsstore.FetchCounts(ctx, db, time.Now())
			metrics.Documents.WithLabelValues("users").Set(float64(c.Users))
			metrics.Documents.WithLabelValues("connections").Set(float64(c.Connections))
			metrics.Documents.WithLabelValues("pending_requests").Set(float64(c.PendingRequests))
			metrics.Documents.WithLabelValues("posts").Set(float64(c.Posts))
			metrics.Documents.WithLabelValues("active_stories").Set(float64(c.ActiveStories))
			metrics.Documents.WithLabelValues("unseen_messages").Set(float64(c.UnseenMessages))
			return nil
		},
	}
}
