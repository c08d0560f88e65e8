// internal/app/store/comments/commentstore.go
package commentstore

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
	return &Store{c: db.Collection("comments")}
}

func (s *Store) Create(ctx context.Context, postID primitive.ObjectID, authorID, body string) (models.Comment, error) {
	c := models.Comment{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		AuthorID:  authorID,
		Text:      body,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByPost returns a post's comments, oldest first.
func (s *Store) ListByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByPosts removes every comment on any of postIDs.
func (s *Store) DeleteByPosts(ctx context.Context, postIDs ...primitive.ObjectID) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"post_id": bson.M{"$in": postIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByAuthor removes every comment written by authorID.
func (s *Store) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"author_id": authorID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
