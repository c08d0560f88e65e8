package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/normalize"
	"github.com/dalemusser/circlehub/internal/app/system/search"
	"github.com/dalemusser/circlehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateHandle is returned when a handle is already taken.
	ErrDuplicateHandle = errors.New("a user with this handle already exists")
	errBadID           = errors.New("user id is required")
	errBadHandle       = errors.New("handle is required")
)

var summaryProjection = bson.M{"_id": 1, "name": 1, "handle": 1, "profile_image": 1, "bio": 1}

// Get loads a user by id. Returns mongo.ErrNoDocuments if not found.
func (s *Store) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByHandle looks up a user by case-insensitive handle.
func (s *Store) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"handle_ci": text.Fold(normalize.Handle(handle))}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether a user with id exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Summaries returns public cards for ids, sorted by handle. Unknown ids are
// skipped.
func (s *Store) Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(summaryProjection).SetSort(bson.D{{Key: "handle_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new user after normalizing fields. Relationship lists are
// initialised empty so $addToSet/$pull always target arrays.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = normalize.ID(u.ID)
	if u.ID == "" {
		return models.User{}, errBadID
	}
	u.Handle = normalize.Handle(u.Handle)
	if u.Handle == "" {
		return models.User{}, errBadHandle
	}
	u.HandleCI = text.Fold(u.Handle)
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Name(u.Name)
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
	if u.Connections == nil {
		u.Connections = []string{}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateHandle
		}
		return models.User{}, err
	}
	return u, nil
}

// IdentityProfile carries the fields the identity provider owns.
type IdentityProfile struct {
	ID           string
	Email        string
	Name         string
	Handle       string
	ProfileImage string
}

// UpsertIdentity mirrors an identity-provider user. New users are created with
// the requested handle, falling back to a suffixed handle when it is taken;
// existing users only get their provider-owned fields refreshed.
func (s *Store) UpsertIdentity(ctx context.Context, p IdentityProfile) (models.User, error) {
	existing, err := s.Get(ctx, p.ID)
	switch {
	case err == nil:
		set := bson.M{
			"email":      normalize.Email(p.Email),
			"name":       normalize.Name(p.Name),
			"updated_at": time.Now().UTC(),
		}
		if p.ProfileImage != "" {
			set["profile_image"] = p.ProfileImage
		}
		if h := normalize.Handle(p.Handle); h != "" && text.Fold(h) != existing.HandleCI {
			set["handle"] = h
			set["handle_ci"] = text.Fold(h)
		}
		var out models.User
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set}, opts).Decode(&out); err != nil {
			if wafflemongo.IsDup(err) {
				return models.User{}, ErrDuplicateHandle
			}
			return models.User{}, err
		}
		return out, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return models.User{}, err
	}

	handle := normalize.Handle(p.Handle)
	if handle == "" {
		handle = normalize.Handle(strings.SplitN(p.Email, "@", 2)[0])
	}
	if handle == "" {
		handle = normalize.Handle(p.ID)
	}
	u := models.User{
		ID:           p.ID,
		Email:        p.Email,
		Name:         p.Name,
		Handle:       handle,
		ProfileImage: p.ProfileImage,
	}
	created, err := s.Create(ctx, u)
	if errors.Is(err, ErrDuplicateHandle) {
		u.Handle = handle + "_" + idSuffix(p.ID)
		return s.Create(ctx, u)
	}
	return created, err
}

func idSuffix(id string) string {
	id = normalize.Handle(id)
	if len(id) > 6 {
		return id[len(id)-6:]
	}
	return id
}

// ProfileUpdate holds the owner-editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name         *string
	Bio          *string
	Location     *string
	ProfileImage *string
	CoverImage   *string
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = normalize.Name(*upd.Name)
	}
	if upd.Bio != nil {
		set["bio"] = strings.TrimSpace(*upd.Bio)
	}
	if upd.Location != nil {
		set["location"] = strings.TrimSpace(*upd.Location)
	}
	if upd.ProfileImage != nil {
		set["profile_image"] = strings.TrimSpace(*upd.ProfileImage)
	}
	if upd.CoverImage != nil {
		set["cover_image"] = strings.TrimSpace(*upd.CoverImage)
	}

	var out models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the user and pulls their id from every other user's
// relationship lists.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	_, err = s.c.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"followers": id},
			bson.M{"following": id},
			bson.M{"connections": id},
		}},
		bson.M{"$pull": bson.M{"followers": id, "following": id, "connections": id}},
	)
	if err != nil {
		return res.DeletedCount, err
	}
	return res.DeletedCount, nil
}

/* ---------------------- relationship lists ---------------------- */

// LinkConnection adds a and b to each other's connections lists. Run it inside
// txn.Run so both writes commit together.
func (s *Store) LinkConnection(ctx context.Context, a, b string) error {
	if err := s.addToSet(ctx, a, "connections", b); err != nil {
		return err
	}
	return s.addToSet(ctx, b, "connections", a)
}

// UnlinkConnection removes a and b from each other's connections lists.
func (s *Store) UnlinkConnection(ctx context.Context, a, b string) error {
	if err := s.pull(ctx, a, "connections", b); err != nil {
		return err
	}
	return s.pull(ctx, b, "connections", a)
}

// Follow records follower -> target in both users' lists.
func (s *Store) Follow(ctx context.Context, follower, target string) error {
	if err := s.addToSet(ctx, follower, "following", target); err != nil {
		return err
	}
	return s.addToSet(ctx, target, "followers", follower)
}

// Unfollow removes follower -> target from both users' lists.
func (s *Store) Unfollow(ctx context.Context, follower, target string) error {
	if err := s.pull(ctx, follower, "following", target); err != nil {
		return err
	}
	return s.pull(ctx, target, "followers", follower)
}

func (s *Store) addToSet(ctx context.Context, id, field, value string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{field: value},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) pull(ctx context.Context, id, field, value string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{field: value},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Suggestions returns up to limit users that u neither follows nor is
// connected to, newest first.
func (s *Store) Suggestions(ctx context.Context, u models.User, limit int64) ([]models.UserSummary, error) {
	exclude := u.Network()
	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$nin": exclude}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.UserSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns up to limit users whose handle starts with q.Folded or, for
// non-handle queries, whose name has a word starting with it. excludeID is
// left out of the results.
func (s *Store) Search(ctx context.Context, q search.Query, excludeID string, limit int64) ([]models.UserSummary, error) {
	or := bson.A{bson.M{"handle_ci": primitive.Regex{Pattern: search.PrefixPattern(q.Folded)}}}
	if !q.IsHandle() {
		or = append(or, bson.M{"name": primitive.Regex{Pattern: search.WordPrefixPattern(q.Folded), Options: "i"}})
	}
	filter := bson.M{"$or": or, "_id": bson.M{"$ne": excludeID}}
	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "handle_ci", Value: 1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.UserSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
