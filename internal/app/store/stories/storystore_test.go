package storystore_test

import (
	"testing"
	"time"

	storystore "github.com/dalemusser/circlehub/internal/app/store/stories"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/circlehub/internal/testutil"
)

func TestStore_Create_SetsExpiry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st, err := store.Create(ctx, models.Story{AuthorID: "a", Text: "hi", Type: models.ContentText}, 24*time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := st.ExpiresAt.Sub(st.CreatedAt); got != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", got)
	}
}

func TestStore_Active_ExcludesExpiredAndOutsiders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storystore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateStory(ctx, "a", "live", time.Hour)
	fx.CreateStory(ctx, "a", "expired", -time.Minute)
	fx.CreateStory(ctx, "z", "outsider", time.Hour)

	got, err := store.Active(ctx, []string{"a", "b"}, time.Now())
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(got) != 1 || got[0].Text != "live" {
		t.Errorf("active = %+v", got)
	}
}

func TestStore_AddView_IsDistinct(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storystore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st := fx.CreateStory(ctx, "a", "live", time.Hour)
	for _, v := range []string{"b", "b", "c"} {
		if _, err := store.AddView(ctx, st.ID, v); err != nil {
			t.Fatalf("AddView: %v", err)
		}
	}
	got, _ := store.Get(ctx, st.ID)
	if len(got.ViewCount) != 2 {
		t.Errorf("viewers = %v, want 2 distinct", got.ViewCount)
	}
}
