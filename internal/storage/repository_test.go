package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testMonth(t *testing.T, year, month int) core.MonthRecord {
	t.Helper()
	rec, err := core.NewMonthRecord(year, month)
	if err != nil {
		t.Fatal(err)
	}
	rec.FixedCosts = append(rec.FixedCosts, core.FixedCostEntry{
		Category:        "Rent",
		EstimatedAmount: decimal.NewFromInt(1400),
		Date:            "3rd",
	})
	core.Recompute(&rec)
	return rec
}

func TestSaveAndGetMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rec := testMonth(t, 2025, 1)

	v1, err := repo.SaveMonthVersion(ctx, rec.Key(), rec)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.Pots = append(rec.Pots, core.PotEntry{Category: "Holiday", EstimatedAmount: decimal.NewFromInt(50)})
	v2, err := repo.SaveMonthVersion(ctx, rec.Key(), rec)
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if v1 != 1 || v2 != 2 {
		t.Fatalf("versions = %d, %d", v1, v2)
	}

	got, version, err := repo.GetMonthVersion(ctx, "2025-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if version != 2 || len(got.Pots) != 1 || !got.FixedCosts[0].EstimatedAmount.Equal(decimal.NewFromInt(1400)) {
		t.Fatalf("unexpected month %+v (version %d)", got, version)
	}
	if got.WeeklyBreakdown[0].PaymentsDue != rec.WeeklyBreakdown[0].PaymentsDue {
		t.Fatalf("weekly breakdown not stored")
	}
}

func TestGetMonthNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetMonth(context.Background(), "2030-01"); !errors.Is(err, core.ErrMonthNotFound) {
		t.Fatalf("expected ErrMonthNotFound, got %v", err)
	}
}

func TestSaveMonthRejectsMismatchedKey(t *testing.T) {
	repo := newTestRepo(t)
	rec := testMonth(t, 2025, 2)
	if err := repo.SaveMonth(context.Background(), "2025-03", rec); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Fatalf("expected ErrInvalidMonthKey, got %v", err)
	}
}

func TestGetAllMonthsOrdered(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, ym := range [][2]int{{2025, 3}, {2024, 12}, {2025, 1}} {
		rec := testMonth(t, ym[0], ym[1])
		if err := repo.SaveMonth(ctx, rec.Key(), rec); err != nil {
			t.Fatal(err)
		}
	}
	all, err := repo.GetAllMonths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-12", "2025-01", "2025-03"}
	if len(all) != len(want) {
		t.Fatalf("got %d months", len(all))
	}
	for i, k := range want {
		if all[i].Key() != k {
			t.Fatalf("position %d: got %s, want %s", i, all[i].Key(), k)
		}
	}
}

func TestDeleteAndSyncLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rec := testMonth(t, 2025, 6)
	version, err := repo.SaveMonthVersion(ctx, rec.Key(), rec)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := repo.GetPendingSyncMonths(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].Key != "2025-06" || pending[0].Deleted {
		t.Fatalf("pending = %+v, err = %v", pending, err)
	}

	if err := repo.MarkSynced(ctx, rec.Key(), version); err != nil {
		t.Fatal(err)
	}
	if pending, _ := repo.GetPendingSyncMonths(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %+v", pending)
	}

	tombstone, err := repo.DeleteMonthVersion(ctx, rec.Key())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetMonth(ctx, rec.Key()); !errors.Is(err, core.ErrMonthNotFound) {
		t.Fatalf("deleted month still readable: %v", err)
	}
	pending, _ = repo.GetPendingSyncMonths(ctx, 10)
	if len(pending) != 1 || !pending[0].Deleted || pending[0].Version != tombstone {
		t.Fatalf("tombstone not pending: %+v", pending)
	}
	if err := repo.DeleteMonth(ctx, rec.Key()); !errors.Is(err, core.ErrMonthNotFound) {
		t.Fatalf("second delete: %v", err)
	}

	if err := repo.MarkSynced(ctx, rec.Key(), tombstone); err != nil {
		t.Fatal(err)
	}
	repo.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err := repo.PurgeDeleted(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v", n, err)
	}
}

func TestMarkSyncedIgnoresStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rec := testMonth(t, 2025, 7)
	v1, _ := repo.SaveMonthVersion(ctx, rec.Key(), rec)
	if _, err := repo.SaveMonthVersion(ctx, rec.Key(), rec); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkSynced(ctx, rec.Key(), v1); err != nil {
		t.Fatal(err)
	}
	pending, _ := repo.GetPendingSyncMonths(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("stale sync cleared newer version: %+v", pending)
	}
}
