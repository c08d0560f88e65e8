// internal/domain/models/connection.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connection statuses. Declined, cancelled, and removed connections are
// deleted rather than moved to a terminal status.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
)

// Connection is a request from RequesterID to RecipientID. PairKey is the
// unordered pair key and carries a unique index, so at most one document
// exists for any two users regardless of who initiated.
type Connection struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterID string             `bson:"requester_id" json:"requester_id"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	PairKey     string             `bson:"pair_key" json:"-"`
	Status      string             `bson:"status" json:"status"` // pending | accepted
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// PairKey returns the order-independent key for two user ids.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Other returns the id on the opposite side of the connection from userID.
func (c Connection) Other(userID string) string {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}
