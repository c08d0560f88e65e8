package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given handle and an identity-provider
// style id ("user_<random>").
func (f *Fixtures) CreateUser(ctx context.Context, handle string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          "user_" + uuid.NewString()[:8],
		Email:       handle + "@example.com",
		Name:        "Test " + handle,
		Handle:      handle,
		HandleCI:    text.Fold(handle),
		Followers:   []string{},
		Following:   []string{},
		Connections: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateUsers inserts n users with handles prefix1..prefixN.
func (f *Fixtures) CreateUsers(ctx context.Context, prefix string, n int) []models.User {
	f.t.Helper()
	out := make([]models.User, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, f.CreateUser(ctx, fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}

// CreateConnection inserts a connection document directly. For accepted
// connections, both users' connections lists are updated too.
func (f *Fixtures) CreateConnection(ctx context.Context, requester, recipient, status string) models.Connection {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Connection{
		ID:          primitive.NewObjectID(),
		RequesterID: requester,
		RecipientID: recipient,
		PairKey:     models.PairKey(requester, recipient),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("connections").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test connection: %v", err)
	}
	if status == models.ConnectionAccepted {
		users := f.db.Collection("users")
		for _, p := range [][2]string{{requester, recipient}, {recipient, requester}} {
			if _, err := users.UpdateOne(ctx, bson.M{"_id": p[0]}, bson.M{"$addToSet": bson.M{"connections": p[1]}}); err != nil {
				f.t.Fatalf("failed to link connection: %v", err)
			}
		}
	}
	return c
}

// CreateMessage inserts a message from -> to.
func (f *Fixtures) CreateMessage(ctx context.Context, from, to, body string, seen bool) models.Message {
	f.t.Helper()

	m := models.Message{
		ID:        primitive.NewObjectID(),
		From:      from,
		To:        to,
		Text:      body,
		Type:      models.ContentText,
		Seen:      seen,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}

// CreatePost inserts a text post.
func (f *Fixtures) CreatePost(ctx context.Context, authorID, body string) models.Post {
	f.t.Helper()

	p := models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Text:      body,
		Type:      models.ContentText,
		Likes:     []string{},
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("posts").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test post: %v", err)
	}
	return p
}

// CreateStory inserts a text story expiring after ttl.
func (f *Fixtures) CreateStory(ctx context.Context, authorID, body string, ttl time.Duration) models.Story {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Story{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Text:      body,
		Type:      models.ContentText,
		ViewCount: []string{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if _, err := f.db.Collection("stories").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test story: %v", err)
	}
	return s
}
