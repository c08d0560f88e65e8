package indexes_test

import (
	"testing"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/circlehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":            {"uniq_users_handle_ci", "idx_users_email"},
		"connections":      {"uniq_connections_pair", "idx_connections_requester_created"},
		"connection_sends": {"idx_connection_sends_requester_sent", "ttl_connection_sends_sent_at"},
		"messages":         {"idx_messages_seen_to"},
		"scheduled_jobs":   {"idx_jobs_status_run_at", "uniq_jobs_dedupe_key"},
	}
	for coll, names := range want {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("%s: list indexes: %v", coll, err)
		}
		have := map[string]bool{}
		for cur.Next(ctx) {
			var idx bson.M
			if err := cur.Decode(&idx); err != nil {
				t.Fatalf("decode: %v", err)
			}
			have[idx["name"].(string)] = true
		}
		cur.Close(ctx)
		for _, n := range names {
			if !have[n] {
				t.Errorf("%s: missing index %q", coll, n)
			}
		}
	}
}

func TestConnectionPairKey_IsUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection("connections")
	doc := bson.M{"requester_id": "a", "recipient_id": "b", "pair_key": "a|b", "status": "pending", "created_at": time.Now()}
	if _, err := c.InsertOne(ctx, doc); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	rev := bson.M{"requester_id": "b", "recipient_id": "a", "pair_key": "a|b", "status": "pending", "created_at": time.Now()}
	_, err := c.InsertOne(ctx, rev)
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestJobDedupeKey_AllowsMissingKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection("scheduled_jobs")
	for i := 0; i < 2; i++ {
		if _, err := c.InsertOne(ctx, bson.M{"name": "story.expire", "status": "pending", "run_at": time.Now()}); err != nil {
			t.Fatalf("insert without dedupe_key #%d: %v", i, err)
		}
	}
	if _, err := c.InsertOne(ctx, bson.M{"name": "digest", "status": "pending", "run_at": time.Now(), "dedupe_key": "digest:2026-01-01"}); err != nil {
		t.Fatalf("insert with dedupe_key: %v", err)
	}
	_, err := c.InsertOne(ctx, bson.M{"name": "digest", "status": "pending", "run_at": time.Now(), "dedupe_key": "digest:2026-01-01"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestConnectionSends_TTL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	var idx struct {
		ExpireAfterSeconds int64 `bson:"expireAfterSeconds"`
	}
	cur, err := db.Collection("connection_sends").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	defer cur.Close(ctx)
	found := false
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if raw["name"] != "ttl_connection_sends_sent_at" {
			continue
		}
		found = true
		b, _ := bson.Marshal(raw)
		if err := bson.Unmarshal(b, &idx); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	}
	if !found {
		t.Fatal("ttl index missing")
	}
	if want := int64(indexes.SendLogTTL / time.Second); idx.ExpireAfterSeconds != want {
		t.Errorf("expireAfterSeconds = %d, want %d", idx.ExpireAfterSeconds, want)
	}
}
