package service

import (
	"context"
	"fmt"
	"time"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/domain/repository"
	"vehicle-service-scheduling/pkg/apperror"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrIllegalTransition is returned when the target status is not reachable from the
// current one, or the appointment changed underneath the caller.
var ErrIllegalTransition = apperror.New("illegal_transition", "The appointment cannot move to the requested status from its current status")

// AppointmentStateMachine applies status changes and schedule moves.
// Every change is persisted together with its ledger effect and history row in one
// transaction; the customer is notified only after that transaction commits.
type AppointmentStateMachine struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	ledger          *SlotLedger
	history         HistoryRecorder
	notifier        Notifier
	now             func() time.Time
}

func NewAppointmentStateMachine(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	ledger *SlotLedger,
	history HistoryRecorder,
	notifier Notifier,
) *AppointmentStateMachine {
	return &AppointmentStateMachine{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		ledger:          ledger,
		history:         history,
		notifier:        notifier,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source
func (m *AppointmentStateMachine) WithClock(now func() time.Time) *AppointmentStateMachine {
	m.now = now
	return m
}

// Open persists a new pending appointment inside tx: it reserves the slot,
// inserts the row and records the creation. The caller owns tx and must call
// Announce after a successful commit.
func (m *AppointmentStateMachine) Open(ctx context.Context, tx *gorm.DB, appointment *entity.Appointment, actor entity.Actor, reason string) error {
	now := m.now()
	appointment.ApplyStatus(entity.StatusPending, now)
	appointment.CreatedAt = now

	if err := m.ledger.Reserve(ctx, tx, appointment.TimeSlotID); err != nil {
		return err
	}

	if err := m.appointmentRepo.Create(tx.WithContext(ctx), appointment); err != nil {
		m.log.Warnf("Failed to create appointment: %+v", err)
		return fmt.Errorf("create appointment: %w", err)
	}

	return m.history.RecordTransition(ctx, tx, appointment.ID, actor.ID, "", entity.StatusPending, reason, nil)
}

// Transition moves the appointment to target and returns the updated copy.
// On any error the passed appointment is left as it was.
func (m *AppointmentStateMachine) Transition(ctx context.Context, appointment *entity.Appointment, target entity.AppointmentStatus, actor entity.Actor, reason string) (*entity.Appointment, error) {
	from := appointment.Status
	if !from.CanTransitionTo(target) {
		return nil, ErrIllegalTransition
	}

	updated := *appointment
	updated.ApplyStatus(target, m.now())

	tx := m.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := m.appointmentRepo.UpdateStatus(tx, &updated, from)
	if err != nil {
		m.log.Warnf("Failed to update status of appointment %s: %+v", appointment.ID, err)
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	if affected == 0 {
		// Someone else changed its status or schedule first
		return nil, ErrIllegalTransition
	}

	if target == entity.StatusCancelled {
		if err := m.ledger.Release(ctx, tx, appointment.TimeSlotID); err != nil {
			return nil, err
		}
	}

	if err := m.history.RecordTransition(ctx, tx, appointment.ID, actor.ID, from, target, reason, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		m.log.Warnf("Failed to commit transaction: %+v", err)
		return nil, err
	}

	m.log.Infof("Appointment %s moved from %s to %s by %s", appointment.ID, from, target, actor.ID)
	m.Announce(&updated, fmt.Sprintf("Your appointment on %s is now %s", m.formatSchedule(&updated), target), map[string]interface{}{
		"previous_status": string(from),
		"reason":          reason,
	})

	return &updated, nil
}

// Reschedule moves a pending or confirmed appointment to newAt.
// The new slot is reserved before the old one is released; when the reservation
// fails nothing changes. Staying in the same slot leaves the ledger alone.
func (m *AppointmentStateMachine) Reschedule(ctx context.Context, appointment *entity.Appointment, newAt time.Time, actor entity.Actor, reason string) (*entity.Appointment, error) {
	if !appointment.Status.CanReschedule() {
		return nil, ErrIllegalTransition
	}

	tx := m.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	slot, err := m.ledger.FindSlotFor(ctx, tx, newAt)
	if err != nil {
		return nil, err
	}

	updated := *appointment
	updated.SetSchedule(newAt, slot.ID)
	updated.UpdatedAt = m.now()
	updated.TimeSlot = slot

	// The row must still hold the slot we are about to release
	affected, err := m.appointmentRepo.UpdateSchedule(tx, &updated, appointment)
	if err != nil {
		m.log.Warnf("Failed to reschedule appointment %s: %+v", appointment.ID, err)
		return nil, fmt.Errorf("update appointment schedule: %w", err)
	}
	if affected == 0 {
		return nil, ErrIllegalTransition
	}

	if slot.ID != appointment.TimeSlotID {
		if err := m.ledger.Reserve(ctx, tx, slot.ID); err != nil {
			return nil, err
		}
		if err := m.ledger.Release(ctx, tx, appointment.TimeSlotID); err != nil {
			return nil, err
		}
	}

	metadata := map[string]interface{}{
		"previous_scheduled_at": appointment.ScheduledAt.UTC().Format(time.RFC3339),
		"scheduled_at":          updated.ScheduledAt.Format(time.RFC3339),
		"previous_time_slot_id": appointment.TimeSlotID.String(),
		"time_slot_id":          slot.ID.String(),
	}
	if err := m.history.RecordTransition(ctx, tx, appointment.ID, actor.ID, appointment.Status, appointment.Status, reason, metadata); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		m.log.Warnf("Failed to commit transaction: %+v", err)
		return nil, err
	}

	m.log.Infof("Appointment %s rescheduled to %s by %s", appointment.ID, updated.ScheduledAt.Format(time.RFC3339), actor.ID)
	m.Announce(&updated, fmt.Sprintf("Your appointment has been moved to %s", m.formatSchedule(&updated)), metadata)

	return &updated, nil
}

// Announce hands a message about the appointment to the notifier
func (m *AppointmentStateMachine) Announce(appointment *entity.Appointment, message string, metadata map[string]interface{}) {
	if m.notifier == nil {
		return
	}

	payload := map[string]interface{}{
		"appointment_id": appointment.ID.String(),
		"status":         string(appointment.Status),
		"scheduled_at":   appointment.ScheduledAt.UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		payload[k] = v
	}

	m.notifier.Dispatch(appointment.CustomerID, message, payload)
}

func (m *AppointmentStateMachine) formatSchedule(appointment *entity.Appointment) string {
	return appointment.ScheduledAt.In(m.ledger.Location()).Format("Mon 02 Jan 2006 15:04")
}
