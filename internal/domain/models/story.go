// internal/domain/models/story.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story is visible until ExpiresAt, after which a scheduled job deletes it.
//
// ViewCount is the set of distinct viewer ids. The field keeps its historical
// name for wire compatibility; use len(ViewCount) for the count.
type Story struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID  string             `bson:"author_id" json:"author_id"`
	Text      string             `bson:"text,omitempty" json:"text,omitempty"`
	Media     *Media             `bson:"media,omitempty" json:"media,omitempty"`
	Type      string             `bson:"type" json:"type"`
	ViewCount []string           `bson:"view_count" json:"view_count"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
}
