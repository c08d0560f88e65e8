package userstore

import (
	"context"

	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser retrieves the caller by id and returns nil if the user is not
// found or any error occurs. This implements auth.UserFetcher.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.Caller {
	if userID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{"_id": 1, "name": 1, "handle": 1, "email": 1})
	if err := f.users.FindOne(ctx, bson.M{"_id": userID}, proj).Decode(&u); err != nil {
		return nil
	}
	return &auth.Caller{
		ID:     u.ID,
		Name:   u.Name,
		Handle: u.Handle,
		Email:  u.Email,
	}
}
