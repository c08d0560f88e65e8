package connections_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/circlehub/internal/app/features/connections"
	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/circlehub/internal/app/system/relations"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/circlehub/internal/testutil"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	rel := relations.New(db, nil, nil, zap.NewNop(), relations.Config{})
	return connections.Routes(connections.NewHandler(rel, zap.NewNop())), testutil.NewFixtures(t, db)
}

func do(t *testing.T, h http.Handler, r *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, testutil.DecodeBody(t, rec)
}

func TestSendAcceptFlow(t *testing.T) {
	h, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")

	req := testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/send", map[string]string{"id": bob.ID}), alice)
	rec, body := do(t, h, req)
	if rec.Code != http.StatusCreated || body["success"] != true {
		t.Fatalf("send: %d %v", rec.Code, body)
	}

	rec, body = do(t, h, testutil.WithUser(testutil.NewRequest("GET", "/status/"+alice.ID), bob))
	if body["status"] != relations.StatusPendingReceived {
		t.Errorf("status = %v", body["status"])
	}

	rec, body = do(t, h, testutil.WithUser(testutil.NewRequest("GET", "/requests"), bob))
	reqs, _ := body["requests"].([]any)
	if rec.Code != http.StatusOK || len(reqs) != 1 {
		t.Fatalf("requests: %d %v", rec.Code, body)
	}

	req = testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/accept", map[string]string{"id": alice.ID}), bob)
	rec, body = do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: %d %v", rec.Code, body)
	}
	conn, _ := body["connection"].(map[string]any)
	if conn["status"] != models.ConnectionAccepted {
		t.Errorf("connection = %v", conn)
	}

	rec, body = do(t, h, testutil.WithUser(testutil.NewRequest("GET", "/"), alice))
	list, _ := body["connections"].([]any)
	if len(list) != 1 {
		t.Errorf("connections = %v", body)
	}
}

func TestErrorStatuses(t *testing.T) {
	h, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	fx.CreateConnection(ctx, alice.ID, bob.ID, models.ConnectionPending)

	tests := []struct {
		name string
		path string
		as   models.User
		id   string
		want int
	}{
		{"send to self", "/send", alice, alice.ID, http.StatusBadRequest},
		{"send to missing user", "/send", alice, "user_nobody", http.StatusNotFound},
		{"duplicate send", "/send", alice, bob.ID, http.StatusConflict},
		{"reverse send", "/send", bob, alice.ID, http.StatusConflict},
		{"accept own request", "/accept", alice, bob.ID, http.StatusNotFound},
		{"remove pending", "/remove", alice, bob.ID, http.StatusNotFound},
		{"decline", "/decline", bob, alice.ID, http.StatusOK},
		{"decline again", "/decline", bob, alice.ID, http.StatusNotFound},
		{"cancel nothing", "/cancel", alice, bob.ID, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.NewJSONRequest(t, "POST", tc.path, map[string]string{"id": tc.id}), tc.as)
			rec, body := do(t, h, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%v)", rec.Code, tc.want, body)
			}
			if want := tc.want < 400; body["success"] != want {
				t.Errorf("success = %v, want %v", body["success"], want)
			}
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := fx.CreateUser(ctx, "alice")

	req := testutil.WithUser(httptest.NewRequest("POST", "/send", nil), alice)
	rec, _ := do(t, h, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
