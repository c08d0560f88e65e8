// internal/app/store/messages/messagestore.go
package messagestore

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
	return &Store{c: db.Collection("messages")}
}

// Create inserts an unseen message.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	m.ID = primitive.NewObjectID()
	m.Seen = false
	m.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// Conversation returns the messages exchanged between a and b, oldest first,
// limited to the most recent limit.
func (s *Store) Conversation(ctx context.Context, a, b string, limit int64) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from": a, "to": b},
		bson.M{"from": b, "to": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// MarkSeen flags every unseen message from -> to as seen in one write and
// returns how many changed.
func (s *Store) MarkSeen(ctx context.Context, from, to string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"from": from, "to": to, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnseenCount is the number of unseen messages for one recipient.
type UnseenCount struct {
	UserID string `bson:"_id" json:"user_id"`
	Count  int    `bson:"count" json:"count"`
}

// UnseenByRecipient groups every unseen message by recipient, ordered by
// recipient id.
func (s *Store) UnseenByRecipient(ctx context.Context) ([]UnseenCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"seen": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$to", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []UnseenCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnseenBySender returns, for recipient to, the unseen count per sender.
func (s *Store) UnseenBySender(ctx context.Context, to string) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"to": to, "seen": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$from", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []UnseenCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Count
	}
	return out, nil
}

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	PeerID      string         `bson:"_id" json:"peer_id"`
	LastMessage models.Message `bson:"last" json:"last_message"`
	Unseen      int            `bson:"unseen" json:"unseen"`
}

// Conversations lists userID's conversations, most recently active first.
func (s *Store) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"from": userID}, bson.M{"to": userID}}}}},
		{{Key: "$sort", Value: bson.M{"created_at": -1}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$from", userID}}, "$to", "$from"}},
			"last": bson.M{"$first": "$$ROOT"},
			"unseen": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$to", userID}},
					bson.M{"$eq": bson.A{"$seen", false}},
				}}, 1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.M{"last.created_at": -1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []ConversationSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFor removes every message sent or received by userID.
func (s *Store) DeleteFor(ctx context.Context, userID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": bson.A{bson.M{"from": userID}, bson.M{"to": userID}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
