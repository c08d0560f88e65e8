package stories_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/circlehub/internal/app/features/stories"
	jobstore "github.com/dalemusser/circlehub/internal/app/store/jobs"
	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/circlehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (http.Handler, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	orch := workflows.NewOrchestrator(jobstore.New(db), zap.NewNop())
	h := stories.NewHandler(db, orch, time.Hour, zap.NewNop())
	return stories.Routes(h), testutil.NewFixtures(t, db), db
}

func serve(t *testing.T, h http.Handler, r *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, testutil.DecodeBody(t, rec)
}

func TestCreate_TriggersExpiryWorkflow(t *testing.T) {
	h, fx, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := fx.CreateUser(ctx, "alice")

	rec, resp := serve(t, h, testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/", map[string]string{"text": "sunset"}), alice))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %v", rec.Code, resp)
	}
	st, _ := resp["story"].(map[string]any)
	id, _ := st["id"].(string)

	var job models.Job
	err := db.Collection("scheduled_jobs").FindOne(ctx, bson.M{"name": workflows.EventStoryCreated}).Decode(&job)
	if err != nil {
		t.Fatalf("story/created job not enqueued: %v", err)
	}
	if job.Payload["story_id"] != id {
		t.Errorf("payload = %v, want story_id %s", job.Payload, id)
	}

	expires, err := time.Parse(time.RFC3339Nano, st["expires_at"].(string))
	if err != nil {
		t.Fatalf("expires_at: %v", err)
	}
	if d := time.Until(expires); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expires in %v, want ~1h", d)
	}
}

func TestList_OnlyActiveNetworkStories(t *testing.T) {
	h, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	me := fx.CreateUser(ctx, "me")
	followed := fx.CreateUser(ctx, "followed")
	stranger := fx.CreateUser(ctx, "stranger")
	if _, err := fx.DB().Collection("users").UpdateOne(ctx, bson.M{"_id": me.ID}, bson.M{"$push": bson.M{"following": followed.ID}}); err != nil {
		t.Fatalf("follow: %v", err)
	}

	fx.CreateStory(ctx, me.ID, "mine", time.Hour)
	fx.CreateStory(ctx, followed.ID, "theirs", time.Hour)
	fx.CreateStory(ctx, followed.ID, "expired", -time.Minute)
	fx.CreateStory(ctx, stranger.ID, "hidden", time.Hour)

	_, resp := serve(t, h, testutil.WithUser(testutil.NewRequest("GET", "/"), me))
	list, _ := resp["stories"].([]any)
	if len(list) != 2 {
		t.Fatalf("stories = %v", resp)
	}
	for _, s := range list {
		if text := s.(map[string]any)["text"]; text == "expired" || text == "hidden" {
			t.Errorf("unexpected story %v", text)
		}
	}
}

func TestViewAndDelete(t *testing.T) {
	h, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	st := fx.CreateStory(ctx, alice.ID, "hi", time.Hour)
	old := fx.CreateStory(ctx, alice.ID, "old", -time.Minute)
	path := "/" + st.ID.Hex()

	for i := 0; i < 2; i++ {
		_, resp := serve(t, h, testutil.WithUser(testutil.NewRequest("POST", path+"/view"), bob))
		if resp["views"] != float64(1) {
			t.Errorf("view %d: views = %v, want 1", i, resp["views"])
		}
	}
	_, resp := serve(t, h, testutil.WithUser(testutil.NewRequest("POST", path+"/view"), alice))
	if resp["views"] != float64(1) {
		t.Errorf("author view counted: %v", resp["views"])
	}
	rec, _ := serve(t, h, testutil.WithUser(testutil.NewRequest("POST", "/"+old.ID.Hex()+"/view"), bob))
	if rec.Code != http.StatusNotFound {
		t.Errorf("view expired = %d, want 404", rec.Code)
	}

	rec, _ = serve(t, h, testutil.WithUser(testutil.NewRequest("DELETE", path), bob))
	if rec.Code != http.StatusForbidden {
		t.Errorf("delete by other = %d, want 403", rec.Code)
	}
	rec, _ = serve(t, h, testutil.WithUser(testutil.NewRequest("DELETE", path), alice))
	if rec.Code != http.StatusOK {
		t.Errorf("delete by author = %d", rec.Code)
	}
}
