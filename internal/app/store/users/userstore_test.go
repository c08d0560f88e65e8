package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/circlehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create_NormalizesAndInitialisesLists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		ID:     "user_abc",
		Email:  "  Ada@Example.COM ",
		Name:   "Ada   Lovelace",
		Handle: "@Ada",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Handle != "ada" || created.HandleCI != "ada" {
		t.Errorf("handle = %q/%q, want ada/ada", created.Handle, created.HandleCI)
	}
	if created.Email != "ada@example.com" {
		t.Errorf("email = %q", created.Email)
	}
	if created.Name != "Ada Lovelace" {
		t.Errorf("name = %q", created.Name)
	}
	if created.Followers == nil || created.Following == nil || created.Connections == nil {
		t.Error("relationship lists should be non-nil")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_DuplicateHandle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{ID: "user_1", Handle: "ada"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create(ctx, models.User{ID: "user_2", Handle: "ADA"})
	if !errors.Is(err, userstore.ErrDuplicateHandle) {
		t.Fatalf("err = %v, want ErrDuplicateHandle", err)
	}
}

func TestStore_UpsertIdentity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	u, err := store.UpsertIdentity(ctx, userstore.IdentityProfile{ID: "user_111111", Email: "grace@example.com", Name: "Grace"})
	if err != nil {
		t.Fatalf("create via upsert: %v", err)
	}
	if u.Handle != "grace" {
		t.Errorf("derived handle = %q, want grace", u.Handle)
	}

	// A second provider user with the same email local part gets a suffixed handle.
	u2, err := store.UpsertIdentity(ctx, userstore.IdentityProfile{ID: "user_222222", Email: "grace@other.com", Name: "Grace Two"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if u2.Handle != "grace_222222" {
		t.Errorf("fallback handle = %q, want grace_222222", u2.Handle)
	}

	// Updating refreshes provider-owned fields and keeps relationship lists.
	if err := store.Follow(ctx, "user_222222", "user_111111"); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	updated, err := store.UpsertIdentity(ctx, userstore.IdentityProfile{ID: "user_111111", Email: "grace@example.com", Name: "Grace Hopper"})
	if err != nil {
		t.Fatalf("update via upsert: %v", err)
	}
	if updated.Name != "Grace Hopper" {
		t.Errorf("name = %q", updated.Name)
	}
	if len(updated.Followers) != 1 || updated.Followers[0] != "user_222222" {
		t.Errorf("followers = %v, want [user_222222]", updated.Followers)
	}
}

func TestStore_LinkAndUnlinkConnection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "alice")
	b := fx.CreateUser(ctx, "bob")

	// Linking twice must not duplicate ids.
	for i := 0; i < 2; i++ {
		if err := store.LinkConnection(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("LinkConnection: %v", err)
		}
	}
	ga, _ := store.Get(ctx, a.ID)
	gb, _ := store.Get(ctx, b.ID)
	if len(ga.Connections) != 1 || !ga.HasConnection(b.ID) {
		t.Errorf("alice connections = %v", ga.Connections)
	}
	if len(gb.Connections) != 1 || !gb.HasConnection(a.ID) {
		t.Errorf("bob connections = %v", gb.Connections)
	}

	if err := store.UnlinkConnection(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("UnlinkConnection: %v", err)
	}
	ga, _ = store.Get(ctx, a.ID)
	gb, _ = store.Get(ctx, b.ID)
	if ga.HasConnection(b.ID) || gb.HasConnection(a.ID) {
		t.Error("connections should be empty after unlink")
	}
}

func TestStore_LinkConnection_MissingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "alice")
	if err := store.LinkConnection(ctx, a.ID, "user_missing"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_Delete_PullsFromOtherUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "alice")
	b := fx.CreateUser(ctx, "bob")
	fx.CreateConnection(ctx, a.ID, b.ID, models.ConnectionAccepted)
	if err := store.Follow(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	n, err := store.Delete(ctx, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if _, err := store.Get(ctx, a.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("deleted user still loads: %v", err)
	}
	gb, _ := store.Get(ctx, b.ID)
	if gb.HasConnection(a.ID) || gb.IsFollowing(a.ID) {
		t.Errorf("bob still references alice: %+v", gb)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "alice")
	bio := "  hello  "
	got, err := store.UpdateProfile(ctx, a.ID, userstore.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Bio != "hello" {
		t.Errorf("bio = %q, want hello", got.Bio)
	}
	if got.Name != a.Name {
		t.Errorf("name changed unexpectedly: %q", got.Name)
	}
}

func TestStore_SuggestionsExcludesNetwork(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "alice")
	b := fx.CreateUser(ctx, "bob")
	c := fx.CreateUser(ctx, "carol")
	d := fx.CreateUser(ctx, "dave")
	if err := store.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	fx.CreateConnection(ctx, a.ID, c.ID, models.ConnectionAccepted)

	me, _ := store.Get(ctx, a.ID)
	got, err := store.Suggestions(ctx, *me, 10)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) != 1 || got[0].ID != d.ID {
		t.Errorf("suggestions = %+v, want only dave", got)
	}
}

func TestStore_Summaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	b := fx.CreateUser(ctx, "bob")
	a := fx.CreateUser(ctx, "alice")
	got, err := store.Summaries(ctx, []string{b.ID, a.ID, "user_missing"})
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(got) != 2 || got[0].Handle != "alice" || got[1].Handle != "bob" {
		t.Errorf("summaries = %+v", got)
	}

	empty, err := store.Summaries(ctx, nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Summaries(nil) = %v, %v; want empty non-nil", empty, err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "alice")
	f := userstore.NewFetcher(db)

	c := f.FetchUser(ctx, a.ID)
	if c == nil || c.ID != a.ID || c.Handle != "alice" {
		t.Fatalf("FetchUser = %+v", c)
	}
	if f.FetchUser(ctx, "user_missing") != nil {
		t.Error("expected nil for unknown user")
	}
}
