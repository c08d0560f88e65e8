package jobstore_test

import (
	"errors"
	"testing"
	"time"

	jobstore "github.com/dalemusser/circlehub/internal/app/store/jobs"
	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/circlehub/internal/testutil"
)

func TestStore_Enqueue_Dedupe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := jobstore.New(db)

	if _, err := store.Enqueue(ctx, "messages/digest", nil, time.Time{}, "digest:2026-10-16"); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	_, err := store.Enqueue(ctx, "messages/digest", nil, time.Time{}, "digest:2026-10-16")
	if !errors.Is(err, jobstore.ErrDuplicateJob) {
		t.Fatalf("err = %v, want ErrDuplicateJob", err)
	}
	// Jobs without a dedupe key never collide.
	for i := 0; i < 2; i++ {
		if _, err := store.Enqueue(ctx, "story/expire", map[string]string{"story_id": "x"}, time.Time{}, ""); err != nil {
			t.Fatalf("Enqueue without key: %v", err)
		}
	}
}

func TestStore_ClaimDue_OnlyDueAndOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := jobstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	due, _ := store.Enqueue(ctx, "due", nil, now.Add(-time.Second), "")
	if _, err := store.Enqueue(ctx, "later", nil, now.Add(time.Hour), ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	j, err := store.ClaimDue(ctx, "w1", now, time.Minute)
	if err != nil || j == nil {
		t.Fatalf("ClaimDue = %v, %v", j, err)
	}
	if j.ID != due.ID || j.Status != models.JobRunning || j.Attempts != 1 || j.LockedBy != "w1" {
		t.Errorf("claimed = %+v", j)
	}

	again, err := store.ClaimDue(ctx, "w2", now, time.Minute)
	if err != nil || again != nil {
		t.Errorf("second claim = %+v, %v; want nil, nil", again, err)
	}
}

func TestStore_ClaimDue_ReclaimsExpiredLease(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := jobstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	if _, err := store.Enqueue(ctx, "job", nil, now.Add(-time.Second), ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	first, _ := store.ClaimDue(ctx, "w1", now, time.Second)
	if first == nil {
		t.Fatal("expected first claim")
	}

	later := now.Add(2 * time.Second)
	second, err := store.ClaimDue(ctx, "w2", later, time.Minute)
	if err != nil || second == nil {
		t.Fatalf("reclaim = %v, %v", second, err)
	}
	if second.LockedBy != "w2" || second.Attempts != 2 {
		t.Errorf("reclaimed = %+v", second)
	}

	// The original owner can no longer finish it.
	if err := store.Complete(ctx, first.ID, "w1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ := store.Get(ctx, first.ID)
	if got.Status != models.JobRunning {
		t.Errorf("status = %q, want running (stale owner ignored)", got.Status)
	}
}

func TestStore_RetryAndFail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := jobstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	j, _ := store.Enqueue(ctx, "flaky", nil, now.Add(-time.Second), "")
	if _, err := store.ClaimDue(ctx, "w1", now, time.Minute); err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if err := store.Retry(ctx, j.ID, "w1", now.Add(time.Minute), "boom"); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	got, _ := store.Get(ctx, j.ID)
	if got.Status != models.JobPending || got.LastError != "boom" || got.LockedBy != "" {
		t.Errorf("after retry = %+v", got)
	}
	if next, _ := store.ClaimDue(ctx, "w1", now, time.Minute); next != nil {
		t.Error("retried job was claimable before its new run_at")
	}

	if _, err := store.ClaimDue(ctx, "w1", now.Add(2*time.Minute), time.Minute); err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if err := store.Fail(ctx, j.ID, "w1", "gave up"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.JobFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}

	n, err := store.PurgeFinished(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Errorf("PurgeFinished = %d, %v; want 1", n, err)
	}
}
