package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vehicle-service-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

// The sqlite test database runs on a single connection, so these concurrent
// callers are serialized statement by statement. They pin down the conditional
// UPDATE; row locking under real parallelism is covered by the postgres-tagged
// tests in postgres_concurrency_test.go.
func TestSlotLedger_ConcurrentReserveNeverExceedsCapacity(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	const capacity, callers = 3, 20
	slot := seedSlot(t, db, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), 60, capacity)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
		other     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Reserve(ctx, nil, slot.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if succeeded != capacity || full != callers-capacity {
		t.Fatalf("succeeded=%d full=%d, want %d and %d", succeeded, full, capacity, callers-capacity)
	}
	if got := reloadSlot(t, db, slot.ID).ReservedCount; got != capacity {
		t.Fatalf("reserved_count=%d, want %d", got, capacity)
	}
}

func TestSlotLedger_ConcurrentReserveInsideTransactions(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	slot := seedSlot(t, db, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), 60, 1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := db.WithContext(ctx).Begin()
			defer tx.Rollback()

			if err := ledger.Reserve(ctx, tx, slot.ID); err != nil {
				return
			}
			if err := tx.Commit().Error; err != nil {
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("succeeded=%d, want exactly 1", succeeded)
	}
	if got := reloadSlot(t, db, slot.ID).ReservedCount; got != 1 {
		t.Fatalf("reserved_count=%d, want 1", got)
	}
}

func TestSlotLedger_ReserveRolledBackWithTransaction(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	slot := seedSlot(t, db, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), 60, 1)

	tx := db.Begin()
	if err := ledger.Reserve(ctx, tx, slot.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	tx.Rollback()

	if got := reloadSlot(t, db, slot.ID).ReservedCount; got != 0 {
		t.Fatalf("reserved_count=%d after rollback, want 0", got)
	}
}

func TestSlotLedger_ReleaseFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	slot := seedSlot(t, db, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), 60, 2)

	if err := ledger.Reserve(ctx, nil, slot.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := ledger.Release(ctx, nil, slot.ID); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}

	if got := reloadSlot(t, db, slot.ID).ReservedCount; got != 0 {
		t.Fatalf("reserved_count=%d, want 0", got)
	}
}

func TestSlotLedger_MissingAndDisabledSlots(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	if err := ledger.Reserve(ctx, nil, uuid.New()); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("reserve missing: got %v, want ErrSlotNotFound", err)
	}
	if err := ledger.Release(ctx, nil, uuid.New()); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("release missing: got %v, want ErrSlotNotFound", err)
	}

	slot := seedSlot(t, db, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), 60, 5)
	if _, err := ledger.SetAvailability(ctx, slot.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := ledger.Reserve(ctx, nil, slot.ID); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("reserve disabled: got %v, want ErrSlotFull", err)
	}
	if err := ledger.CheckCapacity(ctx, nil, slot.ID); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("check disabled: got %v, want ErrSlotFull", err)
	}

	enabled, err := ledger.SetAvailability(ctx, slot.ID, true)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !enabled.IsAvailable {
		t.Fatalf("slot still disabled")
	}
	if err := ledger.Reserve(ctx, nil, slot.ID); err != nil {
		t.Fatalf("reserve re-enabled: %v", err)
	}

	if _, err := ledger.SetAvailability(ctx, uuid.New(), true); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("set availability missing: got %v, want ErrSlotNotFound", err)
	}
}

func TestSlotLedger_ListAvailablePagesAndRestarts(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 2)
	ctx := context.Background()

	day := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	var slots []*entity.TimeSlot
	for i := 0; i < 5; i++ {
		slots = append(slots, seedSlot(t, db, day.Add(time.Duration(i)*time.Hour), 60, 1))
	}
	// One short slot that cannot fit a 60 minute job
	seedSlot(t, db, day.Add(6*time.Hour), 30, 1)
	// One outside the range
	seedSlot(t, db, day.AddDate(0, 0, 1), 60, 1)

	if err := ledger.Reserve(ctx, nil, slots[1].ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := ledger.SetAvailability(ctx, slots[3].ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	from := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	seq := ledger.ListAvailable(ctx, from, to, 60)

	collect := func() []time.Time {
		var starts []time.Time
		for item, err := range seq {
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if item.Available != 1 {
				t.Fatalf("slot %s available=%d, want 1", item.Slot.ID, item.Available)
			}
			starts = append(starts, item.Slot.StartsAt)
		}
		return starts
	}

	first := collect()
	want := []time.Time{slots[0].StartsAt, slots[2].StartsAt, slots[4].StartsAt}
	if len(first) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(first), len(want), first)
	}
	for i := range want {
		if !first[i].Equal(want[i]) {
			t.Fatalf("slot %d starts %v, want %v", i, first[i], want[i])
		}
	}

	// Ranging again starts a fresh scan that sees the current ledger
	if err := ledger.Reserve(ctx, nil, slots[0].ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if second := collect(); len(second) != 2 {
		t.Fatalf("second scan got %d slots, want 2", len(second))
	}

	if got := reloadSlot(t, db, slots[2].ID).ReservedCount; got != 0 {
		t.Fatalf("listing mutated reserved_count")
	}
}

func TestSlotLedger_ListAvailableStopsEarly(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 1)
	ctx := context.Background()

	day := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedSlot(t, db, day.Add(time.Duration(i)*time.Hour), 60, 1)
	}

	seen := 0
	for _, err := range ledger.ListAvailable(ctx, day, day.AddDate(0, 0, 1), 0) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("seen=%d, want 2", seen)
	}
}

func TestSlotLedger_FindSlotForMaterializesFromBusinessHours(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	monday := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	hours := &entity.BusinessHours{
		Weekday:      int(time.Monday),
		OpenTime:     "08:00",
		CloseTime:    "12:00",
		SlotMinutes:  60,
		SlotCapacity: 2,
		Active:       true,
	}
	if err := db.Create(hours).Error; err != nil {
		t.Fatalf("seed hours: %v", err)
	}

	slot, err := ledger.FindSlotFor(ctx, nil, monday.Add(9*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("find slot: %v", err)
	}
	if !slot.StartsAt.Equal(monday.Add(9*time.Hour)) || slot.Capacity != 2 {
		t.Fatalf("unexpected slot %+v", slot)
	}

	var count int64
	db.Model(&entity.TimeSlot{}).Count(&count)
	if count != 4 {
		t.Fatalf("materialized %d slots, want 4", count)
	}

	// Idempotent
	created, err := ledger.Materialize(ctx, nil, monday)
	if err != nil {
		t.Fatalf("materialize again: %v", err)
	}
	if created != 0 {
		t.Fatalf("second materialize created %d, want 0", created)
	}

	// Tuesday has no template
	if _, err := ledger.FindSlotFor(ctx, nil, monday.AddDate(0, 0, 1).Add(9*time.Hour)); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("tuesday: got %v, want ErrSlotNotFound", err)
	}
	// Outside opening hours on a templated day
	if _, err := ledger.FindSlotFor(ctx, nil, monday.Add(18*time.Hour)); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("after closing: got %v, want ErrSlotNotFound", err)
	}
}

func TestSlotLedger_BulkCreateSkipsExisting(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(db, 0)
	ctx := context.Background()

	start := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	seedSlot(t, db, start, 60, 1)

	slots := []entity.TimeSlot{
		{StartsAt: start, EndsAt: start.Add(time.Hour), Capacity: 3, IsAvailable: true},
		{StartsAt: start.Add(time.Hour), EndsAt: start.Add(2 * time.Hour), Capacity: 3, IsAvailable: true, ReservedCount: 2},
	}
	created, err := ledger.BulkCreate(ctx, slots)
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if created != 1 {
		t.Fatalf("created=%d, want 1", created)
	}

	var second entity.TimeSlot
	if err := db.Where("starts_at = ?", start.Add(time.Hour)).First(&second).Error; err != nil {
		t.Fatalf("find created slot: %v", err)
	}
	if second.ReservedCount != 0 {
		t.Fatalf("seeded slot starts with reserved_count=%d", second.ReservedCount)
	}
}
