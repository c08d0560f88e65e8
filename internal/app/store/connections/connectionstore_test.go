package connectionstore_test

import (
	"errors"
	"testing"
	"time"

	connectionstore "github.com/dalemusser/circlehub/internal/app/store/connections"
	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/circlehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create_RejectsEitherDirectionDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := connectionstore.New(db)

	c, err := store.Create(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != models.ConnectionPending || c.PairKey != "u1|u2" {
		t.Errorf("created = %+v", c)
	}

	if _, err := store.Create(ctx, "u1", "u2"); !errors.Is(err, connectionstore.ErrDuplicatePair) {
		t.Errorf("same direction: err = %v, want ErrDuplicatePair", err)
	}
	if _, err := store.Create(ctx, "u2", "u1"); !errors.Is(err, connectionstore.ErrDuplicatePair) {
		t.Errorf("reverse direction: err = %v, want ErrDuplicatePair", err)
	}
}

func TestStore_FindBetween_EitherOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := connectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, "u1", "u2"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		c, err := store.FindBetween(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("FindBetween(%v): %v", pair, err)
		}
		if c.RequesterID != "u1" {
			t.Errorf("requester = %q, want u1", c.RequesterID)
		}
	}
	if _, err := store.FindBetween(ctx, "u1", "u3"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_Accept_OnlyPendingToRecipient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := connectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, "u1", "u2"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Wrong direction: the requester cannot accept their own request.
	if _, err := store.Accept(ctx, "u2", "u1"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("reverse accept err = %v, want ErrNoDocuments", err)
	}

	c, err := store.Accept(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if c.Status != models.ConnectionAccepted {
		t.Errorf("status = %q, want accepted", c.Status)
	}

	// Second accept loses: nothing pending remains.
	if _, err := store.Accept(ctx, "u1", "u2"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("second accept err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_DeletePendingAndAccepted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := connectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, "u1", "u2"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, _ := store.DeleteAccepted(ctx, "u1", "u2"); ok {
		t.Error("DeleteAccepted removed a pending request")
	}
	ok, err := store.DeletePending(ctx, "u1", "u2")
	if err != nil || !ok {
		t.Fatalf("DeletePending = %v, %v", ok, err)
	}
	ok, err = store.DeletePending(ctx, "u1", "u2")
	if err != nil || ok {
		t.Errorf("second DeletePending = %v, %v; want false, nil", ok, err)
	}

	if _, err := store.Create(ctx, "u3", "u4"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Accept(ctx, "u3", "u4"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	ok, err = store.DeleteAccepted(ctx, "u4", "u3")
	if err != nil || !ok {
		t.Errorf("DeleteAccepted (reverse order) = %v, %v", ok, err)
	}
}

func TestStore_CountSentSince(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := connectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	send := func(from, to string) models.Connection {
		t.Helper()
		c, err := store.Create(ctx, from, to)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.RecordSend(ctx, c); err != nil {
			t.Fatalf("RecordSend: %v", err)
		}
		return c
	}
	for _, to := range []string{"b", "c", "d"} {
		send("a", to)
	}
	// Deleting the request leaves its log entry.
	if ok, err := store.DeletePending(ctx, "a", "b"); err != nil || !ok {
		t.Fatalf("DeletePending = %v, %v", ok, err)
	}
	// The same pair again is a fourth send.
	send("a", "b")
	// A request received does not count.
	send("f", "a")

	n, err := store.CountSentSince(ctx, "a", time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountSentSince: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
	n, _ = store.CountSentSince(ctx, "a", time.Now().Add(time.Minute))
	if n != 0 {
		t.Errorf("future window count = %d, want 0", n)
	}

	// Deleting the user clears their log rows on both sides.
	if _, err := store.DeleteAllFor(ctx, "a"); err != nil {
		t.Fatalf("DeleteAllFor: %v", err)
	}
	left, err := db.Collection("connection_sends").CountDocuments(ctx, bson.M{})
	if err != nil || left != 0 {
		t.Errorf("send log after DeleteAllFor = %d, %v; want 0", left, err)
	}
}

func TestStore_Lists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := connectionstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateConnection(ctx, "a", "b", models.ConnectionPending)
	fx.CreateConnection(ctx, "c", "a", models.ConnectionPending)
	fx.CreateConnection(ctx, "a", "d", models.ConnectionAccepted)
	fx.CreateConnection(ctx, "e", "a", models.ConnectionAccepted)

	out, _ := store.ListOutgoing(ctx, "a")
	in, _ := store.ListIncoming(ctx, "a")
	acc, _ := store.ListAccepted(ctx, "a")
	if len(out) != 1 || out[0].RecipientID != "b" {
		t.Errorf("outgoing = %+v", out)
	}
	if len(in) != 1 || in[0].RequesterID != "c" {
		t.Errorf("incoming = %+v", in)
	}
	if len(acc) != 2 {
		t.Errorf("accepted = %+v", acc)
	}

	n, err := store.DeleteAllFor(ctx, "a")
	if err != nil || n != 4 {
		t.Errorf("DeleteAllFor = %d, %v; want 4", n, err)
	}
}
