// internal/app/store/connections/connectionstore.go
package connectionstore

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

// ErrDuplicatePair is returned when a connection document already exists for
// the unordered pair (the unique pair_key index fired).
var ErrDuplicatePair = errors.New("a connection already exists between these users")

type Store struct {
	c     *mongo.Collection
	sends *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("connections"),
		sends: db.Collection("connection_sends"),
	}
}

// sendEntry is one row of the append-only send log. Rows outlive the
// connection they record (cancel, decline, and remove leave them in place)
// and expire through a TTL index on sent_at.
type sendEntry struct {
	ID           primitive.ObjectID `bson:"_id"`
	RequesterID  string             `bson:"requester_id"`
	RecipientID  string             `bson:"recipient_id"`
	ConnectionID primitive.ObjectID `bson:"connection_id"`
	SentAt       time.Time          `bson:"sent_at"`
}

// Create inserts a pending request from requester to recipient.
func (s *Store) Create(ctx context.Context, requester, recipient string) (models.Connection, error) {
	now := time.Now().UTC()
	c := models.Connection{
		ID:          primitive.NewObjectID(),
		RequesterID: requester,
		RecipientID: recipient,
		PairKey:     models.PairKey(requester, recipient),
		Status:      models.ConnectionPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Connection{}, ErrDuplicatePair
		}
		return models.Connection{}, err
	}
	return c, nil
}

// GetByID loads a connection by id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	var c models.Connection
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindBetween returns the connection for the unordered pair (a, b) in any
// status. Returns mongo.ErrNoDocuments when none exists.
func (s *Store) FindBetween(ctx context.Context, a, b string) (*models.Connection, error) {
	var c models.Connection
	if err := s.c.FindOne(ctx, bson.M{"pair_key": models.PairKey(a, b)}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// RecordSend appends c to the send log.
func (s *Store) RecordSend(ctx context.Context, c models.Connection) error {
	_, err := s.sends.InsertOne(ctx, sendEntry{
		ID:           primitive.NewObjectID(),
		RequesterID:  c.RequesterID,
		RecipientID:  c.RecipientID,
		ConnectionID: c.ID,
		SentAt:       c.CreatedAt,
	})
	return err
}

// CountSentSince counts requests requester sent at or after since, whatever
// became of them afterwards.
func (s *Store) CountSentSince(ctx context.Context, requester string, since time.Time) (int64, error) {
	return s.sends.CountDocuments(ctx, bson.M{
		"requester_id": requester,
		"sent_at":      bson.M{"$gte": since},
	})
}

// Accept flips the pending request requester -> recipient to accepted. It
// returns mongo.ErrNoDocuments when no such pending request exists, including
// when a concurrent accept already won.
func (s *Store) Accept(ctx context.Context, requester, recipient string) (*models.Connection, error) {
	filter := bson.M{
		"requester_id": requester,
		"recipient_id": recipient,
		"status":       models.ConnectionPending,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.ConnectionAccepted,
		"updated_at": time.Now().UTC(),
	}}
	var c models.Connection
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeletePending deletes the pending request requester -> recipient and
// reports whether one was deleted.
func (s *Store) DeletePending(ctx context.Context, requester, recipient string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"requester_id": requester,
		"recipient_id": recipient,
		"status":       models.ConnectionPending,
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteAccepted deletes the accepted connection between a and b (either
// direction) and reports whether one was deleted.
func (s *Store) DeleteAccepted(ctx context.Context, a, b string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"pair_key": models.PairKey(a, b),
		"status":   models.ConnectionAccepted,
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteAllFor removes every connection document involving userID.
func (s *Store) DeleteAllFor(ctx context.Context, userID string) (int64, error) {
	either := bson.M{"$or": bson.A{
		bson.M{"requester_id": userID},
		bson.M{"recipient_id": userID},
	}}
	res, err := s.c.DeleteMany(ctx, either)
	if err != nil {
		return 0, err
	}
	if _, err := s.sends.DeleteMany(ctx, either); err != nil {
		return res.DeletedCount, err
	}
	return res.DeletedCount, nil
}

// ListIncoming returns pending requests addressed to userID, newest first.
func (s *Store) ListIncoming(ctx context.Context, userID string) ([]models.Connection, error) {
	return s.list(ctx, bson.M{"recipient_id": userID, "status": models.ConnectionPending})
}

// ListOutgoing returns pending requests userID has sent, newest first.
func (s *Store) ListOutgoing(ctx context.Context, userID string) ([]models.Connection, error) {
	return s.list(ctx, bson.M{"requester_id": userID, "status": models.ConnectionPending})
}

// ListAccepted returns accepted connections involving userID, newest first.
func (s *Store) ListAccepted(ctx context.Context, userID string) ([]models.Connection, error) {
	return s.list(ctx, bson.M{
		"status": models.ConnectionAccepted,
		"$or": bson.A{
			bson.M{"requester_id": userID},
			bson.M{"recipient_id": userID},
		},
	})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Connection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Connection{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
