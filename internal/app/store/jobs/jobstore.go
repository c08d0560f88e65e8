// internal/app/store/jobs/jobstore.go
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/circlehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateJob is returned when a job with the same dedupe key exists.
var ErrDuplicateJob = errors.New("a job with this dedupe key already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("scheduled_jobs")}
}

// Enqueue inserts a pending job. A zero RunAt means now.
func (s *Store) Enqueue(ctx context.Context, name string, payload map[string]string, runAt time.Time, dedupeKey string) (models.Job, error) {
	now := time.Now().UTC()
	if runAt.IsZero() {
		runAt = now
	}
	if payload == nil {
		payload = map[string]string{}
	}
	j := models.Job{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Payload:   payload,
		RunAt:     runAt.UTC(),
		Status:    models.JobPending,
		DedupeKey: dedupeKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, j); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Job{}, ErrDuplicateJob
		}
		return models.Job{}, err
	}
	return j, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var j models.Job
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

// ClaimDue atomically takes the oldest due job for owner: a pending job whose
// run_at has passed, or a running job whose lease expired. It returns nil, nil
// when nothing is due.
func (s *Store) ClaimDue(ctx context.Context, owner string, now time.Time, lease time.Duration) (*models.Job, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"status": models.JobPending, "run_at": bson.M{"$lte": now}},
		bson.M{"status": models.JobRunning, "locked_until": bson.M{"$lt": now}},
	}}
	update := bson.M{
		"$set": bson.M{
			"status":       models.JobRunning,
			"locked_by":    owner,
			"locked_until": now.Add(lease),
			"updated_at":   now,
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "run_at", Value: 1}}).
		SetReturnDocument(options.After)

	var j models.Job
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&j); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}

// Complete marks a claimed job done. The owner check keeps a worker whose
// lease was reclaimed from overwriting the new owner's state.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, owner string) error {
	return s.finish(ctx, id, owner, bson.M{"status": models.JobDone})
}

// Retry puts a claimed job back to pending at runAt, recording the error.
func (s *Store) Retry(ctx context.Context, id primitive.ObjectID, owner string, runAt time.Time, lastErr string) error {
	return s.finish(ctx, id, owner, bson.M{
		"status":     models.JobPending,
		"run_at":     runAt.UTC(),
		"last_error": lastErr,
	})
}

// Fail marks a claimed job permanently failed.
func (s *Store) Fail(ctx context.Context, id primitive.ObjectID, owner string, lastErr string) error {
	return s.finish(ctx, id, owner, bson.M{
		"status":     models.JobFailed,
		"last_error": lastErr,
	})
}

func (s *Store) finish(ctx context.Context, id primitive.ObjectID, owner string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.JobRunning, "locked_by": owner},
		bson.M{"$set": set, "$unset": bson.M{"locked_by": "", "locked_until": ""}},
	)
	return err
}

// CountByStatus returns the number of jobs in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// PurgeFinished deletes done and failed jobs last updated before cutoff.
func (s *Store) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"status":     bson.M{"$in": bson.A{models.JobDone, models.JobFailed}},
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
