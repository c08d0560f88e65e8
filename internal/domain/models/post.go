// internal/domain/models/post.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content types shared by posts, stories, and messages.
const (
	ContentText  = "text"
	ContentImage = "image"
	ContentVideo = "video"
)

// Media references an uploaded object by URL.
type Media struct {
	URL  string `bson:"url" json:"url"`
	Type string `bson:"type" json:"type"` // image | video
}

// Post is a feed entry.
type Post struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID     string             `bson:"author_id" json:"author_id"`
	Text         string             `bson:"text,omitempty" json:"text,omitempty"`
	Media        *Media             `bson:"media,omitempty" json:"media,omitempty"`
	Type         string             `bson:"type" json:"type"`
	Likes        []string           `bson:"likes" json:"likes"`
	CommentCount int                `bson:"comment_count" json:"comment_count"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// Comment belongs to a post.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID `bson:"post_id" json:"post_id"`
	AuthorID  string             `bson:"author_id" json:"author_id"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
