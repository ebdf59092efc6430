package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/service"
	"vehicle-service-scheduling/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func bookingRequest(vehicle uuid.UUID, date, clock string) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		VehicleID:       vehicle,
		AppointmentType: string(entity.AppointmentTypeMaintenance),
		ScheduledDate:   date,
		ScheduledTime:   clock,
	}
}

func TestAppointmentUsecase_SingleCapacitySlotScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.seedSlot(t, testStart, 60, 1)

	alice, aliceCar := env.customer("Alice")
	bob, bobCar := env.customer("Bob")

	first, err := env.bookings.Create(ctx, alice, bookingRequest(aliceCar, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("alice booking: %v", err)
	}
	if first.Status != string(entity.StatusPending) || first.Customer.DisplayName != "Alice" {
		t.Fatalf("unexpected response %+v", first)
	}
	if env.reserved(t, slot.ID) != 1 {
		t.Fatalf("slot not reserved")
	}

	_, err = env.bookings.Create(ctx, bob, bookingRequest(bobCar, "2025-12-01", "09:00"))
	if !errors.Is(err, service.ErrSlotFull) {
		t.Fatalf("bob booking: got %v, want slot full", err)
	}

	cancelled, err := env.bookings.Cancel(ctx, alice, first.ID, "plans changed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != string(entity.StatusCancelled) || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancel response %+v", cancelled)
	}
	if env.reserved(t, slot.ID) != 0 {
		t.Fatalf("slot not released")
	}

	second, err := env.bookings.Create(ctx, bob, bookingRequest(bobCar, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("bob retry: %v", err)
	}
	if env.reserved(t, slot.ID) != 1 {
		t.Fatalf("slot not reserved for bob")
	}

	history, err := env.bookings.GetHistory(ctx, env.staff, first.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Total != 2 || history.Entries[1].NewStatus != string(entity.StatusCancelled) {
		t.Fatalf("unexpected history %+v", history.Entries)
	}

	if _, err := env.bookings.Get(ctx, alice, second.ID); !errors.Is(err, ErrAppointmentNotOwned) {
		t.Fatalf("alice reading bob's booking: got %v", err)
	}
}

func TestAppointmentUsecase_CancelCompletedIsIllegal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedSlot(t, testStart, 60, 1)
	alice, car := env.customer("Alice")

	created, err := env.bookings.Create(ctx, alice, bookingRequest(car, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, step := range []func(context.Context, entity.Actor, uuid.UUID, string) (*dto.AppointmentResponse, error){
		env.bookings.Confirm,
		env.bookings.Start,
		env.bookings.Complete,
	} {
		if _, err := step(ctx, env.staff, created.ID, ""); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	if _, err := env.bookings.Cancel(ctx, alice, created.ID, ""); !errors.Is(err, service.ErrIllegalTransition) {
		t.Fatalf("got %v, want ErrIllegalTransition", err)
	}

	got, err := env.bookings.Get(ctx, env.staff, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(entity.StatusCompleted) || len(got.AllowedTransitions) != 0 {
		t.Fatalf("unexpected state %s %v", got.Status, got.AllowedTransitions)
	}
}

func TestAppointmentUsecase_CreateRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedSlot(t, testStart, 60, 5)
	alice, aliceCar := env.customer("Alice")
	bob, _ := env.customer("Bob")

	// Customers cannot book for somebody else
	req := bookingRequest(aliceCar, "2025-12-01", "09:00")
	req.CustomerID = alice.ID
	if _, err := env.bookings.Create(ctx, bob, req); !errors.Is(err, ErrAppointmentNotOwned) {
		t.Fatalf("got %v, want ErrAppointmentNotOwned", err)
	}

	// Staff must name the customer
	if _, err := env.bookings.Create(ctx, env.staff, bookingRequest(aliceCar, "2025-12-01", "09:00")); !errors.Is(err, ErrCustomerRequired) {
		t.Fatalf("got %v, want ErrCustomerRequired", err)
	}

	if _, err := env.bookings.Create(ctx, alice, bookingRequest(aliceCar, "2025-12-01", "9am")); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("got %v, want ErrInvalidSchedule", err)
	}

	// Staff booking keeps internal notes, the customer never sees them
	cost := decimal.RequireFromString("150.50")
	req = bookingRequest(aliceCar, "2025-12-01", "09:00")
	req.CustomerID = alice.ID
	req.InternalNotes = "check brake pads"
	req.EstimatedCost = &cost
	created, err := env.bookings.Create(ctx, env.staff, req)
	if err != nil {
		t.Fatalf("staff booking: %v", err)
	}
	if created.InternalNotes != "check brake pads" || created.EstimatedCost == nil || !created.EstimatedCost.Equal(cost) {
		t.Fatalf("unexpected staff view %+v", created)
	}
	if created.CreatedBy != env.staff.ID {
		t.Fatalf("created_by=%s, want staff", created.CreatedBy)
	}

	own, err := env.bookings.Get(ctx, alice, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if own.InternalNotes != "" {
		t.Fatalf("customer sees internal notes")
	}

	// Same customer, same time
	_, err = env.bookings.Create(ctx, alice, bookingRequest(aliceCar, "2025-12-01", "09:00"))
	var ve *apperror.ValidationError
	if !errors.As(err, &ve) || !ve.HasCode(service.CodeCustomerDoubleBooking) {
		t.Fatalf("got %v, want customer_double_booking", err)
	}
}

func TestAppointmentUsecase_ValidateAllCollectsViolations(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.customer("Alice")

	req := bookingRequest(uuid.New(), "2025-11-01", "09:00")
	req.ValidateAll = true

	_, err := env.bookings.Create(context.Background(), alice, req)
	var ve *apperror.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want validation error", err)
	}
	for _, code := range []string{service.CodeScheduledInPast, service.CodeVehicleNotFound, service.CodeSlotNotFound} {
		if !ve.HasCode(code) {
			t.Fatalf("missing %s in %+v", code, ve.Violations)
		}
	}
}

func TestAppointmentUsecase_Reschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	morning := env.seedSlot(t, testStart, 60, 1)
	later := env.seedSlot(t, testStart.Add(time.Hour), 60, 1)
	alice, car := env.customer("Alice")
	bob, bobCar := env.customer("Bob")

	created, err := env.bookings.Create(ctx, alice, bookingRequest(car, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	moved, err := env.bookings.Reschedule(ctx, alice, created.ID, &dto.RescheduleRequest{
		ScheduledDate: "2025-12-01",
		ScheduledTime: "10:00",
		Reason:        "traffic",
	})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.TimeSlotID != later.ID || moved.ScheduledTime != "10:00" {
		t.Fatalf("unexpected move %+v", moved)
	}
	if env.reserved(t, morning.ID) != 0 || env.reserved(t, later.ID) != 1 {
		t.Fatalf("ledger not moved")
	}

	// Bob takes the morning, then nobody can move into it
	if _, err := env.bookings.Create(ctx, bob, bookingRequest(bobCar, "2025-12-01", "09:00")); err != nil {
		t.Fatalf("bob booking: %v", err)
	}
	_, err = env.bookings.Reschedule(ctx, alice, created.ID, &dto.RescheduleRequest{ScheduledDate: "2025-12-01", ScheduledTime: "09:00"})
	if !errors.Is(err, service.ErrSlotFull) {
		t.Fatalf("got %v, want ErrSlotFull", err)
	}
	if env.reserved(t, later.ID) != 1 {
		t.Fatalf("failed reschedule released the old slot")
	}

	_, err = env.bookings.Reschedule(ctx, alice, created.ID, &dto.RescheduleRequest{ScheduledDate: "2025-11-01", ScheduledTime: "09:00"})
	var ve *apperror.ValidationError
	if !errors.As(err, &ve) || !ve.HasCode(service.CodeScheduledInPast) {
		t.Fatalf("got %v, want scheduled_in_past", err)
	}
}

func TestAppointmentUsecase_AssignEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedSlot(t, testStart, 60, 2)
	alice, aliceCar := env.customer("Alice")
	bob, bobCar := env.customer("Bob")
	rio := env.employee("Rio")

	first, err := env.bookings.Create(ctx, alice, bookingRequest(aliceCar, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	second, err := env.bookings.Create(ctx, bob, bookingRequest(bobCar, "2025-12-01", "09:30"))
	if err != nil {
		t.Fatalf("bob: %v", err)
	}

	assigned, err := env.bookings.Assign(ctx, env.staff, first.ID, rio)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Employee == nil || assigned.Employee.DisplayName != "Rio" {
		t.Fatalf("unexpected employee %+v", assigned.Employee)
	}

	if _, err := env.bookings.Assign(ctx, env.staff, second.ID, rio); !errors.Is(err, ErrConflictingAssignment) {
		t.Fatalf("got %v, want ErrConflictingAssignment", err)
	}

	_, err = env.bookings.Assign(ctx, env.staff, second.ID, uuid.New())
	var ve *apperror.ValidationError
	if !errors.As(err, &ve) || !ve.HasCode(service.CodeEmployeeNotFound) {
		t.Fatalf("got %v, want employee_not_found", err)
	}

	// Assignment is not a status change
	history, err := env.bookings.GetHistory(ctx, env.staff, first.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Total != 1 {
		t.Fatalf("history rows=%d, want 1", history.Total)
	}
}

func TestAppointmentUsecase_ReadsDegradeWhenLookupFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedSlot(t, testStart, 60, 1)
	alice, car := env.customer("Alice")

	created, err := env.bookings.Create(ctx, alice, bookingRequest(car, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	env.lookup.mu.Lock()
	env.lookup.unavailable[alice.ID] = true
	delete(env.lookup.summaries, car)
	env.lookup.mu.Unlock()

	list, err := env.bookings.ListByCustomer(ctx, alice, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total=%d, want 1", list.Total)
	}
	got := list.Appointments[0]
	if got.ID != created.ID {
		t.Fatalf("unexpected appointment %s", got.ID)
	}
	if got.Customer.DisplayName != "Customer (unavailable)" || got.Vehicle.DisplayName != "Vehicle (not found)" {
		t.Fatalf("unexpected names %q %q", got.Customer.DisplayName, got.Vehicle.DisplayName)
	}

	if _, err := env.bookings.ListByCustomer(ctx, alice, uuid.New()); !errors.Is(err, ErrAppointmentNotOwned) {
		t.Fatalf("got %v, want ErrAppointmentNotOwned", err)
	}
}

func TestAppointmentUsecase_DeleteReleasesAndRemovesHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.seedSlot(t, testStart, 60, 2)
	alice, car := env.customer("Alice")
	bob, bobCar := env.customer("Bob")

	active, err := env.bookings.Create(ctx, alice, bookingRequest(car, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled, err := env.bookings.Create(ctx, bob, bookingRequest(bobCar, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.bookings.Cancel(ctx, bob, cancelled.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if env.reserved(t, slot.ID) != 1 {
		t.Fatalf("reserved=%d, want 1", env.reserved(t, slot.ID))
	}

	// Deleting the cancelled one must not release again
	if err := env.bookings.Delete(ctx, env.staff, cancelled.ID); err != nil {
		t.Fatalf("delete cancelled: %v", err)
	}
	if env.reserved(t, slot.ID) != 1 {
		t.Fatalf("reserved=%d after deleting cancelled, want 1", env.reserved(t, slot.ID))
	}

	if err := env.bookings.Delete(ctx, env.staff, active.ID); err != nil {
		t.Fatalf("delete active: %v", err)
	}
	if env.reserved(t, slot.ID) != 0 {
		t.Fatalf("reserved=%d after deleting active, want 0", env.reserved(t, slot.ID))
	}

	var rows int64
	env.db.Model(&entity.AppointmentHistory{}).Where("appointment_id = ?", active.ID).Count(&rows)
	if rows != 0 {
		t.Fatalf("history rows left: %d", rows)
	}

	if _, err := env.bookings.Get(ctx, env.staff, active.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("got %v, want ErrAppointmentNotFound", err)
	}
	if err := env.bookings.Delete(ctx, env.staff, active.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestAppointmentUsecase_DeleteReleasesTheSlotCurrentlyHeld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.seedSlot(t, testStart, 60, 2)
	second := env.seedSlot(t, testStart.Add(time.Hour), 60, 2)
	alice, car := env.customer("Alice")

	created, err := env.bookings.Create(ctx, alice, bookingRequest(car, "2025-12-01", "09:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.bookings.Reschedule(ctx, alice, created.ID, &dto.RescheduleRequest{ScheduledDate: "2025-12-01", ScheduledTime: "10:00"}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	if err := env.bookings.Delete(ctx, env.staff, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.reserved(t, first.ID); got != 0 {
		t.Fatalf("first slot reserved=%d, want 0", got)
	}
	if got := env.reserved(t, second.ID); got != 0 {
		t.Fatalf("second slot reserved=%d, want 0", got)
	}
}

func TestDatabaseConstraintErrors(t *testing.T) {
	exclusion := fmt.Errorf("update appointment: %w", &pgconn.PgError{Code: "23P01", ConstraintName: employeeNoOverlapConstraint})
	duplicate := fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: "23505", ConstraintName: customerActiveSlotIndex})

	if !isExclusionViolation(exclusion, employeeNoOverlapConstraint) {
		t.Fatalf("exclusion violation not recognised")
	}
	if isExclusionViolation(duplicate, employeeNoOverlapConstraint) {
		t.Fatalf("unique violation taken for exclusion violation")
	}
	if isExclusionViolation(errors.New("boom"), employeeNoOverlapConstraint) {
		t.Fatalf("plain error taken for exclusion violation")
	}
	if !isDuplicateKeyError(duplicate, customerActiveSlotIndex) {
		t.Fatalf("duplicate key not recognised")
	}

	env := newTestEnv(t)
	err := env.bookings.(*appointmentUsecase).translateBookingError(exclusion)
	var verr *apperror.ValidationError
	if !errors.As(err, &verr) || len(verr.Violations) != 1 || verr.Violations[0].Code != service.CodeEmployeeConflict {
		t.Fatalf("got %v, want one employee_conflict violation", err)
	}
}
