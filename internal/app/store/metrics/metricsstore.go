package metricsstore

import (
	"context"
	"time"

	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals exported as gauges.
type Counts struct {
	Users           int64
	Connections     int64 // accepted
	PendingRequests int64
	Posts           int64
	ActiveStories   int64
	UnseenMessages  int64
}

// FetchCounts returns collection totals as of now.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database, now time.Time) Counts {
	count := func(coll string, filter bson.M) int64 {
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return 0
		}
		return n
	}

	return Counts{
		Users:           count("users", bson.M{}),
		Connections:     count("connections", bson.M{"status": models.ConnectionAccepted}),
		PendingRequests: count("connections", bson.M{"status": models.ConnectionPending}),
		Posts:           count("posts", bson.M{}),
		ActiveStories:   count("stories", bson.M{"expires_at": bson.M{"$gt": now}}),
		UnseenMessages:  count("messages", bson.M{"seen": false}),
	}
}
