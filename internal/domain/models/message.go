// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message from one user to another.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	From      string             `bson:"from" json:"from"`
	To        string             `bson:"to" json:"to"`
	Text      string             `bson:"text,omitempty" json:"text,omitempty"`
	Media     *Media             `bson:"media,omitempty" json:"media,omitempty"`
	Type      string             `bson:"type" json:"type"`
	Seen      bool               `bson:"seen" json:"seen"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
