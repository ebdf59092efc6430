package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/domain/repository"
	"vehicle-service-scheduling/internal/infrastructure/lookup"
	"vehicle-service-scheduling/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Violation codes reported by the booking validator
const (
	CodeScheduledInPast       = "scheduled_in_past"
	CodeCustomerNotFound      = "customer_not_found"
	CodeCustomerUnavailable   = "customer_unavailable"
	CodeVehicleNotFound       = "vehicle_not_found"
	CodeVehicleUnavailable    = "vehicle_unavailable"
	CodeVehicleNotOwned       = "vehicle_not_owned"
	CodeEmployeeNotFound      = "employee_not_found"
	CodeEmployeeUnavailable   = "employee_unavailable"
	CodeEmployeeConflict      = "employee_conflict"
	CodeCustomerDoubleBooking = "customer_double_booking"
	CodeSlotNotFound          = "slot_not_found"
	CodeSlotFull              = "slot_full"
)

// ValidationMode selects whether validation stops at the first violation
type ValidationMode int

const (
	ShortCircuit ValidationMode = iota
	CollectAll
)

// EntityLookup resolves external entity summaries
type EntityLookup interface {
	Fetch(ctx context.Context, kind lookup.Kind, id uuid.UUID, authToken string) (*lookup.Summary, error)
}

// BookingCandidate is a booking request as seen by the validator
type BookingCandidate struct {
	CustomerID      uuid.UUID
	VehicleID       uuid.UUID
	EmployeeID      *uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	AuthToken       string
}

// window returns [start, end) of the candidate
func (c *BookingCandidate) window() (time.Time, time.Time) {
	start := c.ScheduledAt.UTC()
	return start, start.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// BookingValidator runs the admission checks for new bookings.
// Every check is advisory; the ledger reservation inside the booking
// transaction remains the authoritative capacity check.
type BookingValidator struct {
	db              *gorm.DB
	log             *logrus.Logger
	lookup          EntityLookup
	appointmentRepo repository.AppointmentRepository
	ledger          *SlotLedger
	now             func() time.Time
}

func NewBookingValidator(
	db *gorm.DB,
	log *logrus.Logger,
	entityLookup EntityLookup,
	appointmentRepo repository.AppointmentRepository,
	ledger *SlotLedger,
) *BookingValidator {
	return &BookingValidator{
		db:              db,
		log:             log,
		lookup:          entityLookup,
		appointmentRepo: appointmentRepo,
		ledger:          ledger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source
func (v *BookingValidator) WithClock(now func() time.Time) *BookingValidator {
	v.now = now
	return v
}

// ValidateBooking returns the target slot when every check passes, a
// *apperror.ValidationError when some do, or a plain error when the store fails.
func (v *BookingValidator) ValidateBooking(ctx context.Context, candidate *BookingCandidate, mode ValidationMode) (*entity.TimeSlot, error) {
	if mode == CollectAll {
		return v.validateAll(ctx, candidate)
	}

	steps := []func(context.Context, *BookingCandidate) ([]apperror.Violation, error){
		v.checkSchedule,
		v.checkCustomer,
		v.checkVehicle,
		v.checkEmployee,
		v.checkEmployeeConflict,
		v.checkCustomerDoubleBooking,
	}
	for _, step := range steps {
		violations, err := step(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if len(violations) > 0 {
			return nil, &apperror.ValidationError{Violations: violations}
		}
	}

	slot, violations, err := v.checkSlot(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &apperror.ValidationError{Violations: violations}
	}
	return slot, nil
}

// ValidateReschedule checks the parts of admission that depend on the time:
// the new time is in the future, the assigned employee is free and the
// customer has nothing else at that exact time. Capacity is left to the ledger.
func (v *BookingValidator) ValidateReschedule(ctx context.Context, appointment *entity.Appointment, newAt time.Time) error {
	candidate := &BookingCandidate{
		CustomerID:      appointment.CustomerID,
		VehicleID:       appointment.VehicleID,
		EmployeeID:      appointment.EmployeeID,
		ScheduledAt:     newAt,
		DurationMinutes: appointment.DurationMinutes,
	}

	var all []apperror.Violation
	for _, step := range []func(context.Context, *BookingCandidate, uuid.UUID) ([]apperror.Violation, error){
		func(ctx context.Context, c *BookingCandidate, _ uuid.UUID) ([]apperror.Violation, error) {
			return v.checkSchedule(ctx, c)
		},
		v.employeeConflict,
		v.customerDoubleBooking,
	} {
		violations, err := step(ctx, candidate, appointment.ID)
		if err != nil {
			return err
		}
		all = append(all, violations...)
		if len(all) > 0 {
			break
		}
	}

	if len(all) > 0 {
		return &apperror.ValidationError{Violations: all}
	}
	return nil
}

// CheckEmployeeFree returns an active appointment of the employee overlapping
// the given one, or nil when the employee is free.
func (v *BookingValidator) CheckEmployeeFree(ctx context.Context, tx *gorm.DB, employeeID uuid.UUID, appointment *entity.Appointment) (*entity.Appointment, error) {
	db := v.db
	if tx != nil {
		db = tx
	}
	overlap, err := v.appointmentRepo.FindEmployeeOverlap(db.WithContext(ctx), employeeID, appointment.ScheduledAt, appointment.EndsAt, appointment.ID)
	if err != nil {
		v.log.Warnf("Failed to check employee %s overlap: %+v", employeeID, err)
		return nil, fmt.Errorf("check employee overlap: %w", err)
	}
	return overlap, nil
}

// =============================================================================
// Batch mode
// =============================================================================

func (v *BookingValidator) validateAll(ctx context.Context, candidate *BookingCandidate) (*entity.TimeSlot, error) {
	var all []apperror.Violation

	violations, _ := v.checkSchedule(ctx, candidate)
	all = append(all, violations...)

	// Entity lookups are independent network calls, run them together.
	var customerV, vehicleV, employeeV []apperror.Violation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customerV, err = v.checkCustomer(gctx, candidate)
		return err
	})
	g.Go(func() error {
		var err error
		vehicleV, err = v.checkVehicle(gctx, candidate)
		return err
	})
	g.Go(func() error {
		var err error
		employeeV, err = v.checkEmployee(gctx, candidate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	all = append(all, customerV...)
	all = append(all, vehicleV...)
	all = append(all, employeeV...)

	for _, step := range []func(context.Context, *BookingCandidate) ([]apperror.Violation, error){
		v.checkEmployeeConflict,
		v.checkCustomerDoubleBooking,
	} {
		violations, err := step(ctx, candidate)
		if err != nil {
			return nil, err
		}
		all = append(all, violations...)
	}

	slot, violations, err := v.checkSlot(ctx, candidate)
	if err != nil {
		return nil, err
	}
	all = append(all, violations...)

	if len(all) > 0 {
		return nil, &apperror.ValidationError{Violations: all}
	}
	return slot, nil
}

// =============================================================================
// Checks
// =============================================================================

func (v *BookingValidator) checkSchedule(_ context.Context, c *BookingCandidate) ([]apperror.Violation, error) {
	if !c.ScheduledAt.After(v.now()) {
		return []apperror.Violation{{
			Code:    CodeScheduledInPast,
			Message: "Scheduled time must be in the future",
		}}, nil
	}
	return nil, nil
}

func (v *BookingValidator) checkCustomer(ctx context.Context, c *BookingCandidate) ([]apperror.Violation, error) {
	_, violation := v.fetch(ctx, lookup.KindCustomer, c.CustomerID, c.AuthToken, CodeCustomerNotFound, CodeCustomerUnavailable)
	return violation, nil
}

func (v *BookingValidator) checkVehicle(ctx context.Context, c *BookingCandidate) ([]apperror.Violation, error) {
	summary, violation := v.fetch(ctx, lookup.KindVehicle, c.VehicleID, c.AuthToken, CodeVehicleNotFound, CodeVehicleUnavailable)
	if violation != nil {
		return violation, nil
	}
	if summary.OwnerID == nil || *summary.OwnerID != c.CustomerID {
		return []apperror.Violation{{
			Code:    CodeVehicleNotOwned,
			Message: fmt.Sprintf("Vehicle %s does not belong to customer %s", c.VehicleID, c.CustomerID),
		}}, nil
	}
	return nil, nil
}

func (v *BookingValidator) checkEmployee(ctx context.Context, c *BookingCandidate) ([]apperror.Violation, error) {
	if c.EmployeeID == nil {
		return nil, nil
	}
	_, violation := v.fetch(ctx, lookup.KindEmployee, *c.EmployeeID, c.AuthToken, CodeEmployeeNotFound, CodeEmployeeUnavailable)
	return violation, nil
}

func (v *BookingValidator) checkEmployeeConflict(ctx context.Context, c *BookingCandidate) ([]apperror.Violation, error) {
	return v.employeeConflict(ctx, c, uuid.Nil)
}

func (v *BookingValidator) employeeConflict(ctx context.Context, c *BookingCandidate, excludeID uuid.UUID) ([]apperror.Violation, error) {
	if c.EmployeeID == nil {
		return nil, nil
	}

	start, end := c.window()
	overlap, err := v.appointmentRepo.FindEmployeeOverlap(v.db.WithContext(ctx), *c.EmployeeID, start, end, excludeID)
	if err != nil {
		v.log.Warnf("Failed to check employee %s overlap: %+v", *c.EmployeeID, err)
		return nil, fmt.Errorf("check employee overlap: %w", err)
	}
	if overlap != nil {
		return []apperror.Violation{{
			Code:    CodeEmployeeConflict,
			Message: fmt.Sprintf("Employee already has an appointment between %s and %s", overlap.ScheduledAt.Format(time.RFC3339), overlap.EndsAt.Format(time.RFC3339)),
		}}, nil
	}
	return nil, nil
}

func (v *BookingValidator) checkCustomerDoubleBooking(ctx context.Context, c *BookingCandidate) ([]apperror.Violation, error) {
	return v.customerDoubleBooking(ctx, c, uuid.Nil)
}

func (v *BookingValidator) customerDoubleBooking(ctx context.Context, c *BookingCandidate, excludeID uuid.UUID) ([]apperror.Violation, error) {
	existing, err := v.appointmentRepo.FindActiveForCustomerAt(v.db.WithContext(ctx), c.CustomerID, c.ScheduledAt, excludeID)
	if err != nil {
		v.log.Warnf("Failed to check customer %s bookings: %+v", c.CustomerID, err)
		return nil, fmt.Errorf("check customer bookings: %w", err)
	}
	if existing != nil {
		return []apperror.Violation{DoubleBookingViolation()}, nil
	}
	return nil, nil
}

func (v *BookingValidator) checkSlot(ctx context.Context, c *BookingCandidate) (*entity.TimeSlot, []apperror.Violation, error) {
	slot, err := v.ledger.FindSlotFor(ctx, nil, c.ScheduledAt)
	if err != nil {
		if violation, ok := SlotViolation(err); ok {
			return nil, []apperror.Violation{violation}, nil
		}
		return nil, nil, err
	}
	if !slot.HasCapacity() {
		return nil, []apperror.Violation{{Code: CodeSlotFull, Message: ErrSlotFull.Message, Err: ErrSlotFull}}, nil
	}
	return slot, nil, nil
}

// fetch maps lookup outcomes onto violations; anything other than a summary
// or NotFound counts as unavailable.
func (v *BookingValidator) fetch(ctx context.Context, kind lookup.Kind, id uuid.UUID, authToken, notFoundCode, unavailableCode string) (*lookup.Summary, []apperror.Violation) {
	summary, err := v.lookup.Fetch(ctx, kind, id, authToken)
	if err == nil && summary != nil {
		return summary, nil
	}

	if errors.Is(err, lookup.ErrEntityNotFound) || (err == nil && summary == nil) {
		return nil, []apperror.Violation{{
			Code:    notFoundCode,
			Message: fmt.Sprintf("The %s %s does not exist", kind, id),
			Err:     lookup.ErrEntityNotFound,
		}}
	}

	v.log.Warnf("Lookup of %s %s unavailable: %+v", kind, id, err)
	return nil, []apperror.Violation{{
		Code:    unavailableCode,
		Message: fmt.Sprintf("Could not verify %s %s right now, please retry", kind, id),
		Err:     lookup.ErrEntityUnavailable,
	}}
}

// SlotViolation converts a ledger outcome into a violation
func SlotViolation(err error) (apperror.Violation, bool) {
	switch {
	case errors.Is(err, ErrSlotFull):
		return apperror.Violation{Code: CodeSlotFull, Message: ErrSlotFull.Message, Err: ErrSlotFull}, true
	case errors.Is(err, ErrSlotNotFound):
		return apperror.Violation{Code: CodeSlotNotFound, Message: ErrSlotNotFound.Message, Err: ErrSlotNotFound}, true
	}
	return apperror.Violation{}, false
}

// DoubleBookingViolation is reported when the customer already holds the exact time
func DoubleBookingViolation() apperror.Violation {
	return apperror.Violation{
		Code:    CodeCustomerDoubleBooking,
		Message: "Customer already has an active appointment at this time",
	}
}

// EmployeeConflictViolation is reported when the database rejects an overlapping employee booking.
func EmployeeConflictViolation() apperror.Violation {
	return apperror.Violation{
		Code:    CodeEmployeeConflict,
		Message: "Employee already has an appointment at this time",
	}
}
