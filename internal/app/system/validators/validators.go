// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection this app owns, in creation order.
var Collections = []string{
	"users",
	"connections",
	"posts",
	"comments",
	"stories",
	"messages",
	"scheduled_jobs",
}

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Deployments without collMod/validator support are logged and
// skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	schemas := map[string]bson.M{
		"users":          usersSchema(),
		"connections":    connectionsSchema(),
		"posts":          postsSchema(),
		"comments":       commentsSchema(),
		"stories":        storiesSchema(),
		"messages":       messagesSchema(),
		"scheduled_jobs": jobsSchema(),
	}

	for _, coll := range Collections {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		if err := setValidator(ctx, db, coll, schemas[coll]); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure name exists. created is true only
// when this call created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	if exists, listErr := collectionExists(ctx, db, name); listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 48 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 59 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 115 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func stringArray() bson.M {
	return bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"handle", "handle_ci", "followers", "following", "connections"},
			"properties": bson.M{
				"_id":         nonBlank,
				"handle":      nonBlank,
				"handle_ci":   nonBlank,
				"email":       bson.M{"bsonType": "string"},
				"name":        bson.M{"bsonType": "string"},
				"followers":   stringArray(),
				"following":   stringArray(),
				"connections": stringArray(),
			},
		},
	}
}

func connectionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"requester_id", "recipient_id", "pair_key", "status", "created_at"},
			"properties": bson.M{
				"requester_id": nonBlank,
				"recipient_id": nonBlank,
				"pair_key":     nonBlank,
				"status":       bson.M{"enum": bson.A{"pending", "accepted"}},
				"created_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func postsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"author_id", "type", "created_at"},
			"properties": bson.M{
				"author_id":  nonBlank,
				"type":       bson.M{"enum": bson.A{"text", "image", "video"}},
				"likes":      stringArray(),
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func commentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"post_id", "author_id", "text", "created_at"},
			"properties": bson.M{
				"post_id":    bson.M{"bsonType": "objectId"},
				"author_id":  nonBlank,
				"text":       nonBlank,
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func storiesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"author_id", "type", "created_at", "expires_at"},
			"properties": bson.M{
				"author_id":  nonBlank,
				"type":       bson.M{"enum": bson.A{"text", "image", "video"}},
				"view_count": stringArray(),
				"created_at": bson.M{"bsonType": "date"},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"from", "to", "type", "seen", "created_at"},
			"properties": bson.M{
				"from":       nonBlank,
				"to":         nonBlank,
				"type":       bson.M{"enum": bson.A{"text", "image", "video"}},
				"seen":       bson.M{"bsonType": "bool"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func jobsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "run_at", "status"},
			"properties": bson.M{
				"name":   nonBlank,
				"run_at": bson.M{"bsonType": "date"},
				"status": bson.M{"enum": bson.A{"pending", "running", "done", "failed"}},
			},
		},
	}
}
