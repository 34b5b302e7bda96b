package quota_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/quota"
)

func newLedger(t *testing.T, allotment int, period string) quota.System {
	t.Helper()

	cfg := config.QuotaConfig{FreeAllotment: allotment, Period: period}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize quota config: %v", err)
	}
	return quota.NewMemory(&cfg)
}

func TestCheckAndReserveWithinAllotment(t *testing.T) {
	ledger := newLedger(t, 3, config.QuotaPeriodNever)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec, err := ledger.CheckAndReserve(ctx, "user-1")
		if err != nil {
			t.Fatalf("reservation %d: %v", i, err)
		}
		if rec.UsedCount != i {
			t.Errorf("used count = %d, want %d", rec.UsedCount, i)
		}
	}

	if _, err := ledger.CheckAndReserve(ctx, "user-1"); !errors.Is(err, quota.ErrExceeded) {
		t.Errorf("expected ErrExceeded, got %v", err)
	}
}

func TestCheckAndReserveBoundaryRace(t *testing.T) {
	ledger := newLedger(t, 1, config.QuotaPeriodNever)
	ctx := context.Background()

	const contenders = 32
	var admitted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.CheckAndReserve(ctx, "user-1"); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 1 {
		t.Errorf("admitted = %d, want exactly 1", admitted.Load())
	}
}

func TestPaidTierNeverExceeds(t *testing.T) {
	ledger := newLedger(t, 1, config.QuotaPeriodNever)
	ctx := context.Background()

	if _, err := ledger.SetTier(ctx, "user-1", quota.TierPaid); err != nil {
		t.Fatalf("set tier: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := ledger.CheckAndReserve(ctx, "user-1"); err != nil {
			t.Fatalf("paid reservation %d: %v", i, err)
		}
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	ledger := newLedger(t, 3, config.QuotaPeriodNever)
	ctx := context.Background()

	if _, err := ledger.CheckAndReserve(ctx, "user-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := ledger.Release(ctx, "user-1"); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}

	rec, err := ledger.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.UsedCount != 0 {
		t.Errorf("used count = %d, want 0", rec.UsedCount)
	}
}

func TestSetTierInvalid(t *testing.T) {
	ledger := newLedger(t, 3, config.QuotaPeriodNever)

	if _, err := ledger.SetTier(context.Background(), "user-1", quota.Tier("PLATINUM")); !errors.Is(err, quota.ErrInvalidTier) {
		t.Errorf("expected ErrInvalidTier, got %v", err)
	}
}

func TestOwnersAreIndependent(t *testing.T) {
	ledger := newLedger(t, 1, config.QuotaPeriodNever)
	ctx := context.Background()

	if _, err := ledger.CheckAndReserve(ctx, "user-1"); err != nil {
		t.Fatalf("user-1 reserve: %v", err)
	}
	if _, err := ledger.CheckAndReserve(ctx, "user-2"); err != nil {
		t.Errorf("user-2 should have an independent allotment: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	rec := quota.Record{Tier: quota.TierFree, UsedCount: 2}

	snap := rec.Snapshot(5)
	if snap.Remaining == nil || *snap.Remaining != 3 {
		t.Errorf("remaining = %v, want 3", snap.Remaining)
	}

	rec.UsedCount = 9
	snap = rec.Snapshot(5)
	if snap.Remaining == nil || *snap.Remaining != 0 {
		t.Errorf("remaining = %v, want floor at 0", snap.Remaining)
	}

	rec.Tier = quota.TierPaid
	snap = rec.Snapshot(5)
	if snap.Remaining != nil {
		t.Errorf("paid tier remaining = %v, want omitted", snap.Remaining)
	}
}
