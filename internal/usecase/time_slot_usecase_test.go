package usecase

import (
	"context"
	"errors"
	"testing"

	"vehicle-service-scheduling/internal/delivery/dto"
)

func weekday(d int) *int {
	return &d
}

func TestTimeSlotUsecase_ListAvailableMaterializesFromBusinessHours(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 2025-12-01 is a Monday
	_, err := env.timeSlots.UpsertBusinessHours(ctx, &dto.BusinessHoursRequest{
		Weekday:      weekday(1),
		OpenTime:     "08:00",
		CloseTime:    "12:00",
		BreakStart:   "10:00",
		BreakEnd:     "11:00",
		SlotMinutes:  60,
		SlotCapacity: 2,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("upsert hours: %v", err)
	}

	list, err := env.timeSlots.ListAvailable(ctx, &dto.AvailableSlotsQuery{From: "2025-12-01", To: "2025-12-02"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 3 {
		t.Fatalf("total=%d, want 3", list.Total)
	}
	for i, want := range []string{"08:00", "09:00", "11:00"} {
		if list.Slots[i].StartTime != want || list.Slots[i].Available != 2 {
			t.Fatalf("slot %d = %+v", i, list.Slots[i])
		}
	}

	// Listing again does not duplicate
	again, err := env.timeSlots.ListAvailable(ctx, &dto.AvailableSlotsQuery{From: "2025-12-01", To: "2025-12-01"})
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if again.Total != 3 {
		t.Fatalf("total=%d, want 3", again.Total)
	}

	hours, err := env.timeSlots.ListBusinessHours(ctx)
	if err != nil {
		t.Fatalf("list hours: %v", err)
	}
	if hours.Total != 1 {
		t.Fatalf("hours=%d, want 1", hours.Total)
	}
}

func TestTimeSlotUsecase_RangeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		from, to string
		want     error
	}{
		{"2025-12-02", "2025-12-01", ErrInvalidDateRange},
		{"01-12-2025", "2025-12-01", ErrInvalidDateRange},
		{"2025-12-01", "2026-01-15", ErrDateRangeTooLarge},
	}
	for _, tt := range tests {
		_, err := env.timeSlots.ListAvailable(ctx, &dto.AvailableSlotsQuery{From: tt.from, To: tt.to})
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s..%s: got %v, want %v", tt.from, tt.to, err, tt.want)
		}
	}

	if _, err := env.timeSlots.ListAvailable(ctx, &dto.AvailableSlotsQuery{From: "2025-12-01", To: "2025-12-31"}); err != nil {
		t.Fatalf("31 day range rejected: %v", err)
	}
}

func TestTimeSlotUsecase_CreateAndDisableSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, err := env.timeSlots.CreateSlot(ctx, &dto.CreateSlotRequest{Date: "2025-12-01", StartTime: "09:00", EndTime: "10:00", Capacity: 2})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}

	if _, err := env.timeSlots.CreateSlot(ctx, &dto.CreateSlotRequest{Date: "2025-12-01", StartTime: "09:00", EndTime: "09:30", Capacity: 1}); !errors.Is(err, ErrSlotExists) {
		t.Fatalf("got %v, want ErrSlotExists", err)
	}
	if _, err := env.timeSlots.CreateSlot(ctx, &dto.CreateSlotRequest{Date: "2025-12-01", StartTime: "11:00", EndTime: "10:00", Capacity: 1}); !errors.Is(err, ErrInvalidSlotWindow) {
		t.Fatalf("got %v, want ErrInvalidSlotWindow", err)
	}

	bulk, err := env.timeSlots.BulkCreateSlots(ctx, &dto.BulkCreateSlotsRequest{Slots: []dto.CreateSlotRequest{
		{Date: "2025-12-01", StartTime: "09:00", EndTime: "10:00", Capacity: 2},
		{Date: "2025-12-01", StartTime: "10:00", EndTime: "11:00", Capacity: 2},
	}})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if bulk.Requested != 2 || bulk.Created != 1 {
		t.Fatalf("unexpected bulk result %+v", bulk)
	}

	disabled, err := env.timeSlots.SetAvailability(ctx, slot.ID, false)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if disabled.IsAvailable {
		t.Fatalf("slot still available")
	}

	list, err := env.timeSlots.ListAvailable(ctx, &dto.AvailableSlotsQuery{From: "2025-12-01", To: "2025-12-01"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 || list.Slots[0].StartTime != "10:00" {
		t.Fatalf("unexpected list %+v", list.Slots)
	}
}

func TestTimeSlotUsecase_RejectsInvalidBusinessHours(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.timeSlots.UpsertBusinessHours(context.Background(), &dto.BusinessHoursRequest{
		Weekday:      weekday(2),
		OpenTime:     "17:00",
		CloseTime:    "08:00",
		SlotMinutes:  60,
		SlotCapacity: 1,
		Active:       true,
	})
	if !errors.Is(err, ErrInvalidBusinessHours) {
		t.Fatalf("got %v, want ErrInvalidBusinessHours", err)
	}
}

func TestTimeSlotUsecase_MaterializeRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.timeSlots.UpsertBusinessHours(ctx, &dto.BusinessHoursRequest{
		Weekday: weekday(1), OpenTime: "08:00", CloseTime: "10:00", SlotMinutes: 30, SlotCapacity: 1, Active: true,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Monday through Sunday, only Monday has hours
	result, err := env.timeSlots.MaterializeRange(ctx, &dto.MaterializeRequest{From: "2025-12-01", To: "2025-12-07"})
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if result.Days != 7 || result.Created != 4 {
		t.Fatalf("unexpected result %+v", result)
	}
}
