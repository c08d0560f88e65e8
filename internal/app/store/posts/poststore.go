// internal/app/store/posts/poststore.go
package poststore

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
	return &Store{c: db.Collection("posts")}
}

// Create inserts p, assigning id, timestamp, and an empty likes set.
func (s *Store) Create(ctx context.Context, p models.Post) (models.Post, error) {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	p.Likes = []string{}
	p.CommentCount = 0
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Post{}, err
	}
	return p, nil
}

// Get loads a post by id. Returns mongo.ErrNoDocuments if not found.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a post and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByAuthor removes all posts by authorID and returns their ids.
func (s *Store) DeleteByAuthor(ctx context.Context, authorID string) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"author_id": authorID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	_, err = s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return ids, err
}

// Feed returns posts by any of authorIDs created before `before` (zero means
// now), newest first.
func (s *Store) Feed(ctx context.Context, authorIDs []string, before time.Time, limit int64) ([]models.Post, error) {
	filter := bson.M{"author_id": bson.M{"$in": authorIDs}}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleLike adds userID to the post's likes, or removes it when already
// present. It returns the updated post and whether the user now likes it.
func (s *Store) ToggleLike(ctx context.Context, id primitive.ObjectID, userID string) (*models.Post, bool, error) {
	// Conditional $pull first; if nothing matched the user had not liked it.
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
		opts,
	).Decode(&p)
	if err == nil {
		return &p, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}
	if err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"likes": userID}},
		opts,
	).Decode(&p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// IncCommentCount adjusts the denormalized comment counter.
func (s *Store) IncCommentCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"comment_count": delta}})
	return err
}
