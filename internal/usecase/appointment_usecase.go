package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vehicle-service-scheduling/internal/converter"
	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/domain/repository"
	"vehicle-service-scheduling/internal/infrastructure/lookup"
	"vehicle-service-scheduling/internal/service"
	"vehicle-service-scheduling/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound   = apperror.New("appointment_not_found", "Appointment not found")
	ErrAppointmentNotOwned   = apperror.New("appointment_not_owned", "Appointment does not belong to you")
	ErrConflictingAssignment = apperror.New("conflicting_assignment", "Employee already has an overlapping appointment")
	ErrCustomerRequired      = apperror.New("customer_required", "customer_id is required when booking on behalf of a customer")
	ErrInvalidSchedule       = apperror.New("invalid_schedule", "Invalid schedule, use YYYY-MM-DD for the date and HH:MM for the time")
)

// Constraint backing the customer double-booking rule in PostgreSQL
const (
	customerActiveSlotIndex     = "idx_appointments_customer_active_slot"
	employeeNoOverlapConstraint = "appointments_employee_no_overlap"
)

const enrichConcurrency = 8

type AppointmentUsecase interface {
	Create(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	Confirm(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	Start(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	Complete(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	MarkNoShow(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleRequest) (*dto.AppointmentResponse, error)
	Assign(ctx context.Context, actor entity.Actor, id uuid.UUID, employeeID uuid.UUID) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListByCustomer(ctx context.Context, actor entity.Actor, customerID uuid.UUID) (*dto.AppointmentListResponse, error)
	GetHistory(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.HistoryListResponse, error)
	Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	historyRepo     repository.AppointmentHistoryRepository
	ledger          *service.SlotLedger
	validator       *service.BookingValidator
	stateMachine    *service.AppointmentStateMachine
	history         service.HistoryRecorder
	lookup          service.EntityLookup
	defaultDuration int
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	historyRepo repository.AppointmentHistoryRepository,
	ledger *service.SlotLedger,
	validator *service.BookingValidator,
	stateMachine *service.AppointmentStateMachine,
	history service.HistoryRecorder,
	entityLookup service.EntityLookup,
	defaultDuration int,
) AppointmentUsecase {
	if defaultDuration <= 0 {
		defaultDuration = 60
	}
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		historyRepo:     historyRepo,
		ledger:          ledger,
		validator:       validator,
		stateMachine:    stateMachine,
		history:         history,
		lookup:          entityLookup,
		defaultDuration: defaultDuration,
	}
}

// Create validates the request, reserves the slot and stores the appointment as pending
func (u *appointmentUsecase) Create(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	scheduledAt, err := parseSchedule(req.ScheduledDate, req.ScheduledTime, u.ledger.Location())
	if err != nil {
		return nil, err
	}

	customerID := req.CustomerID
	if !actor.IsStaff() {
		if customerID == uuid.Nil {
			customerID = actor.ID
		}
		if customerID != actor.ID {
			return nil, ErrAppointmentNotOwned
		}
	}
	if customerID == uuid.Nil {
		return nil, ErrCustomerRequired
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = u.defaultDuration
	}

	mode := service.ShortCircuit
	if req.ValidateAll {
		mode = service.CollectAll
	}

	slot, err := u.validator.ValidateBooking(ctx, &service.BookingCandidate{
		CustomerID:      customerID,
		VehicleID:       req.VehicleID,
		EmployeeID:      req.EmployeeID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: duration,
		AuthToken:       actor.AuthToken,
	}, mode)
	if err != nil {
		return nil, err
	}

	appointment := &entity.Appointment{
		CustomerID:         customerID,
		VehicleID:          req.VehicleID,
		EmployeeID:         req.EmployeeID,
		CreatedBy:          actor.ID,
		Type:               entity.AppointmentType(req.AppointmentType),
		DurationMinutes:    duration,
		ServiceDescription: req.ServiceDescription,
		CustomerNotes:      req.CustomerNotes,
	}
	if actor.IsStaff() {
		appointment.InternalNotes = req.InternalNotes
	}
	if req.EstimatedCost != nil {
		appointment.EstimatedCost = decimal.NewNullDecimal(*req.EstimatedCost)
	}
	appointment.SetSchedule(scheduledAt, slot.ID)

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.stateMachine.Open(ctx, tx, appointment, actor, "appointment created"); err != nil {
		return nil, u.translateBookingError(err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit transaction: %+v", err)
		return nil, u.translateBookingError(err)
	}

	u.log.Infof("Appointment %s created for customer %s at %s", appointment.ID, customerID, appointment.ScheduledAt.Format(time.RFC3339))

	created, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || created == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		created = appointment
	}

	u.stateMachine.Announce(created, fmt.Sprintf("Your appointment is booked for %s", created.ScheduledAt.In(u.ledger.Location()).Format("Mon 02 Jan 2006 15:04")), nil)

	return u.toResponse(ctx, actor, created), nil
}

func (u *appointmentUsecase) Confirm(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, actor, id, entity.StatusConfirmed, reason)
}

func (u *appointmentUsecase) Start(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, actor, id, entity.StatusInProgress, reason)
}

func (u *appointmentUsecase) Complete(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, actor, id, entity.StatusCompleted, reason)
}

// Cancel releases the slot as part of the transition
func (u *appointmentUsecase) Cancel(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, actor, id, entity.StatusCancelled, reason)
}

func (u *appointmentUsecase) MarkNoShow(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, actor, id, entity.StatusNoShow, reason)
}

// Reschedule moves the appointment to a new date and time.
func (u *appointmentUsecase) Reschedule(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleRequest) (*dto.AppointmentResponse, error) {
	newAt, err := parseSchedule(req.ScheduledDate, req.ScheduledTime, u.ledger.Location())
	if err != nil {
		return nil, err
	}

	appointment, err := u.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !appointment.Status.CanReschedule() {
		return nil, service.ErrIllegalTransition
	}

	if err := u.validator.ValidateReschedule(ctx, appointment, newAt); err != nil {
		return nil, err
	}

	updated, err := u.stateMachine.Reschedule(ctx, appointment, newAt, actor, req.Reason)
	if err != nil {
		if isDuplicateKeyError(err, customerActiveSlotIndex) {
			return nil, &apperror.ValidationError{Violations: []apperror.Violation{service.DoubleBookingViolation()}}
		}
		if isExclusionViolation(err, employeeNoOverlapConstraint) {
			return nil, &apperror.ValidationError{Violations: []apperror.Violation{service.EmployeeConflictViolation()}}
		}
		return nil, err
	}

	return u.toResponse(ctx, actor, updated), nil
}

// Assign puts an employee on the appointment. No status changes, so no history row.
func (u *appointmentUsecase) Assign(ctx context.Context, actor entity.Actor, id uuid.UUID, employeeID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, service.ErrIllegalTransition
	}

	if _, err := u.lookup.Fetch(ctx, lookup.KindEmployee, employeeID, actor.AuthToken); err != nil {
		code := service.CodeEmployeeUnavailable
		cause := lookup.ErrEntityUnavailable
		if errors.Is(err, lookup.ErrEntityNotFound) {
			code = service.CodeEmployeeNotFound
			cause = lookup.ErrEntityNotFound
		}
		return nil, &apperror.ValidationError{Violations: []apperror.Violation{{
			Code:    code,
			Message: cause.Message,
			Err:     cause,
		}}}
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	// Work from the locked row so the overlap check sees the schedule being written
	loaded := appointment
	appointment, err = u.appointmentRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.Status.IsTerminal() {
		return nil, service.ErrIllegalTransition
	}

	overlap, err := u.validator.CheckEmployeeFree(ctx, tx, employeeID, appointment)
	if err != nil {
		return nil, err
	}
	if overlap != nil {
		u.log.Warnf("Employee %s already booked by appointment %s", employeeID, overlap.ID)
		return nil, ErrConflictingAssignment
	}

	updated := *appointment
	if loaded.TimeSlot != nil && loaded.TimeSlot.ID == appointment.TimeSlotID {
		updated.TimeSlot = loaded.TimeSlot
	}
	updated.EmployeeID = &employeeID
	updated.UpdatedAt = time.Now().UTC()

	affected, err := u.appointmentRepo.UpdateEmployee(tx, &updated)
	if err != nil {
		if isExclusionViolation(err, employeeNoOverlapConstraint) {
			return nil, ErrConflictingAssignment
		}
		u.log.Warnf("Failed to assign employee to appointment %s: %+v", id, err)
		return nil, err
	}
	if affected == 0 {
		return nil, service.ErrIllegalTransition
	}

	if err := tx.Commit().Error; err != nil {
		if isExclusionViolation(err, employeeNoOverlapConstraint) {
			return nil, ErrConflictingAssignment
		}
		u.log.Warnf("Failed to commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Employee %s assigned to appointment %s by %s", employeeID, id, actor.ID)
	u.stateMachine.Announce(&updated, "A technician has been assigned to your appointment", map[string]interface{}{
		"employee_id": employeeID.String(),
	})

	return u.toResponse(ctx, actor, &updated), nil
}

func (u *appointmentUsecase) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return u.toResponse(ctx, actor, appointment), nil
}

func (u *appointmentUsecase) ListByCustomer(ctx context.Context, actor entity.Actor, customerID uuid.UUID) (*dto.AppointmentListResponse, error) {
	if !actor.IsStaff() && customerID != actor.ID {
		return nil, ErrAppointmentNotOwned
	}

	appointments, err := u.appointmentRepo.FindByCustomerID(u.db.WithContext(ctx), customerID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for customer %s: %+v", customerID, err)
		return nil, err
	}

	names := u.displayNames(ctx, actor.AuthToken, appointments...)
	responses := converter.AppointmentsToResponses(appointments, names, u.ledger.Location())
	if !actor.IsStaff() {
		for i := range responses {
			responses[i].InternalNotes = ""
		}
	}

	return &dto.AppointmentListResponse{
		Appointments: responses,
		Total:        len(responses),
	}, nil
}

func (u *appointmentUsecase) GetHistory(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.HistoryListResponse, error) {
	if _, err := u.load(ctx, actor, id); err != nil {
		return nil, err
	}

	rows, err := u.history.List(ctx, id)
	if err != nil {
		return nil, err
	}

	return &dto.HistoryListResponse{
		AppointmentID: id,
		Entries:       converter.HistoryToResponses(rows),
		Total:         len(rows),
	}, nil
}

// Delete physically removes the appointment and its history.
// An appointment still holding its slot gives the capacity back first.
func (u *appointmentUsecase) Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	// Every status except cancelled still counts against the slot
	if appointment.Status != entity.StatusCancelled {
		if err := u.ledger.Release(ctx, tx, appointment.TimeSlotID); err != nil && !errors.Is(err, service.ErrSlotNotFound) {
			return err
		}
	}

	if _, err := u.historyRepo.DeleteByAppointmentID(tx, id); err != nil {
		u.log.Warnf("Failed to delete history of appointment %s: %+v", id, err)
		return err
	}

	affected, err := u.appointmentRepo.Delete(tx, appointment)
	if err != nil {
		u.log.Warnf("Failed to delete appointment %s: %+v", id, err)
		return err
	}
	if affected == 0 {
		return service.ErrIllegalTransition
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit transaction: %+v", err)
		return err
	}

	u.log.Infof("Appointment %s deleted by %s", id, actor.ID)
	return nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

func (u *appointmentUsecase) transition(ctx context.Context, actor entity.Actor, id uuid.UUID, target entity.AppointmentStatus, reason string) (*dto.AppointmentResponse, error) {
	appointment, err := u.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated, err := u.stateMachine.Transition(ctx, appointment, target, actor, reason)
	if err != nil {
		return nil, err
	}

	return u.toResponse(ctx, actor, updated), nil
}

// load finds the appointment and checks the actor may see it
func (u *appointmentUsecase) load(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !actor.IsStaff() && appointment.CustomerID != actor.ID {
		return nil, ErrAppointmentNotOwned
	}
	return appointment, nil
}

func (u *appointmentUsecase) translateBookingError(err error) error {
	if violation, ok := service.SlotViolation(err); ok {
		return &apperror.ValidationError{Violations: []apperror.Violation{violation}}
	}
	if isDuplicateKeyError(err, customerActiveSlotIndex) {
		return &apperror.ValidationError{Violations: []apperror.Violation{service.DoubleBookingViolation()}}
	}
	if isExclusionViolation(err, employeeNoOverlapConstraint) {
		return &apperror.ValidationError{Violations: []apperror.Violation{service.EmployeeConflictViolation()}}
	}
	return err
}

func (u *appointmentUsecase) toResponse(ctx context.Context, actor entity.Actor, appointment *entity.Appointment) *dto.AppointmentResponse {
	names := u.displayNames(ctx, actor.AuthToken, *appointment)
	response := converter.AppointmentToResponse(appointment, names, u.ledger.Location())
	if !actor.IsStaff() {
		response.InternalNotes = ""
	}
	return response
}

// displayNames resolves every referenced entity once. Failed lookups degrade
// to a placeholder instead of failing the read.
func (u *appointmentUsecase) displayNames(ctx context.Context, authToken string, appointments ...entity.Appointment) map[uuid.UUID]string {
	type ref struct {
		kind lookup.Kind
		id   uuid.UUID
	}

	seen := make(map[uuid.UUID]bool)
	var refs []ref
	add := func(kind lookup.Kind, id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			refs = append(refs, ref{kind: kind, id: id})
		}
	}
	for _, a := range appointments {
		add(lookup.KindCustomer, a.CustomerID)
		add(lookup.KindVehicle, a.VehicleID)
		if a.EmployeeID != nil {
			add(lookup.KindEmployee, *a.EmployeeID)
		}
	}

	var mu sync.Mutex
	names := make(map[uuid.UUID]string, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for _, r := range refs {
		g.Go(func() error {
			var name string
			summary, err := u.lookup.Fetch(gctx, r.kind, r.id, authToken)
			switch {
			case err == nil && summary != nil:
				name = summary.DisplayName
			case errors.Is(err, lookup.ErrEntityNotFound):
				name = placeholderName(r.kind, "not found")
			default:
				u.log.Debugf("Lookup of %s %s degraded: %v", r.kind, r.id, err)
				name = placeholderName(r.kind, "unavailable")
			}

			mu.Lock()
			names[r.id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return names
}

func placeholderName(kind lookup.Kind, state string) string {
	k := string(kind)
	return strings.ToUpper(k[:1]) + k[1:] + " (" + state + ")"
}

// parseSchedule reads a wall-clock date and time in loc and returns it in UTC
func parseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, ErrInvalidSchedule
	}
	return at.UTC(), nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isExclusionViolation reports a PostgreSQL exclusion constraint violation (23P01) on constraintName
func isExclusionViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23P01" && strings.EqualFold(pgErr.ConstraintName, constraintName)
	}
	return false
}
