// internal/app/store/stories/storystore.go
package storystore

import (
	"context"
	"time"

	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("stories")}
}

// Create inserts st with ExpiresAt = now + ttl.
func (s *Store) Create(ctx context.Context, st models.Story, ttl time.Duration) (models.Story, error) {
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.ViewCount = []string{}
	st.CreatedAt = now
	st.ExpiresAt = now.Add(ttl)
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		return models.Story{}, err
	}
	return st, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	var st models.Story
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Active returns unexpired stories by any of authorIDs, newest first.
func (s *Store) Active(ctx context.Context, authorIDs []string, now time.Time) ([]models.Story, error) {
	filter := bson.M{
		"author_id":  bson.M{"$in": authorIDs},
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Story{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddView records viewerID as a distinct viewer and returns the story.
func (s *Store) AddView(ctx context.Context, id primitive.ObjectID, viewerID string) (*models.Story, error) {
	var st models.Story
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"view_count": viewerID}},
		opts,
	).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Delete removes a story and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByAuthor removes every story by authorID.
func (s *Store) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"author_id": authorID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes every story whose expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
