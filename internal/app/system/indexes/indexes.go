// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's index set is reconciled
idempotently; problems are aggregated so startup can fail fast with the full
picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", userIndexes()},
		{"connections", connectionIndexes()},
		{"connection_sends", connectionSendIndexes()},
		{"posts", postIndexes()},
		{"comments", commentIndexes()},
		{"stories", storyIndexes()},
		{"messages", messageIndexes()},
		{"scheduled_jobs", jobIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	Sparse             *bool  `bson:"sparse,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

func sameInt32Ptr(a, b *int32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A missing collection lists as an error on some servers; CreateOne
		// below creates it.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		var name string
		var unique, sparse *bool
		var expire *int32
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique, sparse = m.Options.Unique, m.Options.Sparse
			expire = m.Options.ExpireAfterSeconds
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if sameBoolPtr(unique, ex.Unique) && sameBoolPtr(sparse, ex.Sparse) &&
				sameInt32Ptr(expire, ex.ExpireAfterSeconds) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			// Options or name drifted: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && unique != nil && *unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique != nil && *unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "handle_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_handle_ci"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email"),
		},
	}
}

func connectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// At most one connection document per unordered pair.
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_connections_pair"),
		},
		{
			// Rate-limit window count for a sender.
			Keys:    bson.D{{Key: "requester_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_connections_requester_created"),
		},
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_connections_recipient_status"),
		},
		{
			Keys:    bson.D{{Key: "requester_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_connections_requester_status"),
		},
	}
}

// SendLogTTL is how long connection_sends entries live. The connection
// request window must not exceed it.
const SendLogTTL = 7 * 24 * time.Hour

func connectionSendIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// Rate-limit window count for a sender.
			Keys:    bson.D{{Key: "requester_id", Value: 1}, {Key: "sent_at", Value: -1}},
			Options: options.Index().SetName("idx_connection_sends_requester_sent"),
		},
		{
			Keys: bson.D{{Key: "sent_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(SendLogTTL / time.Second)).
				SetName("ttl_connection_sends_sent_at"),
		},
	}
}

func postIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_posts_author_created"),
		},
	}
}

func commentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_comments_post_created"),
		},
	}
}

func storyIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_stories_author_expires"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_stories_expires"),
		},
	}
}

func messageIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// Digest aggregation: unseen messages grouped by recipient.
			Keys:    bson.D{{Key: "seen", Value: 1}, {Key: "to", Value: 1}},
			Options: options.Index().SetName("idx_messages_seen_to"),
		},
		{
			Keys:    bson.D{{Key: "from", Value: 1}, {Key: "to", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_messages_thread"),
		},
	}
}

func jobIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "run_at", Value: 1}},
			Options: options.Index().SetName("idx_jobs_status_run_at"),
		},
		{
			Keys:    bson.D{{Key: "dedupe_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_jobs_dedupe_key"),
		},
	}
}
