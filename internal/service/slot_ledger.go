package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/domain/repository"
	"vehicle-service-scheduling/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrSlotFull is returned when the slot has no remaining capacity or is disabled
	ErrSlotFull = apperror.New("slot_full", "The requested time slot is fully booked")

	// ErrSlotNotFound is returned when no bookable slot exists for the requested time
	ErrSlotNotFound = apperror.New("slot_not_found", "No bookable time slot exists for the requested time")
)

const defaultSlotPageSize = 100

// =============================================================================
// Types
// =============================================================================

// SlotLedger is the only component allowed to change time slot capacity counters.
//
// Reserve and Release are single conditional UPDATE statements, so the check
// "reserved_count < capacity" and the increment happen in the same atomic unit
// inside the store. Both accept the caller's transaction so that a reservation
// commits or rolls back together with the appointment row that owns it.
type SlotLedger struct {
	db        *gorm.DB
	log       *logrus.Logger
	slotRepo  repository.TimeSlotRepository
	hoursRepo repository.BusinessHoursRepository
	location  *time.Location
	pageSize  int
}

// =============================================================================
// Constructor
// =============================================================================

func NewSlotLedger(
	db *gorm.DB,
	log *logrus.Logger,
	slotRepo repository.TimeSlotRepository,
	hoursRepo repository.BusinessHoursRepository,
	location *time.Location,
	pageSize int,
) *SlotLedger {
	if location == nil {
		location = time.UTC
	}
	if pageSize <= 0 {
		pageSize = defaultSlotPageSize
	}
	return &SlotLedger{
		db:        db,
		log:       log,
		slotRepo:  slotRepo,
		hoursRepo: hoursRepo,
		location:  location,
		pageSize:  pageSize,
	}
}

// Location returns the workshop time zone used for dates and business hours
func (l *SlotLedger) Location() *time.Location {
	return l.location
}

// =============================================================================
// Capacity
// =============================================================================

// Reserve atomically takes one unit of capacity.
// Under N concurrent callers for the last unit exactly one succeeds; the rest get ErrSlotFull.
func (l *SlotLedger) Reserve(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error {
	db := l.conn(ctx, tx)

	affected, err := l.slotRepo.IncrementReserved(db, slotID)
	if err != nil {
		l.log.Warnf("Failed to reserve slot %s: %+v", slotID, err)
		return fmt.Errorf("reserve slot %s: %w", slotID, err)
	}
	if affected == 1 {
		l.log.Debugf("Reserved one unit of slot %s", slotID)
		return nil
	}

	slot, err := l.slotRepo.FindByID(db, slotID)
	if err != nil {
		return fmt.Errorf("find slot %s: %w", slotID, err)
	}
	if slot == nil {
		return ErrSlotNotFound
	}
	return ErrSlotFull
}

// Release gives back one unit of capacity, floored at zero.
// Callers guard against double release by checking the appointment status first.
func (l *SlotLedger) Release(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error {
	db := l.conn(ctx, tx)

	affected, err := l.slotRepo.DecrementReserved(db, slotID)
	if err != nil {
		l.log.Warnf("Failed to release slot %s: %+v", slotID, err)
		return fmt.Errorf("release slot %s: %w", slotID, err)
	}
	if affected == 1 {
		l.log.Debugf("Released one unit of slot %s", slotID)
		return nil
	}

	slot, err := l.slotRepo.FindByID(db, slotID)
	if err != nil {
		return fmt.Errorf("find slot %s: %w", slotID, err)
	}
	if slot == nil {
		return ErrSlotNotFound
	}
	l.log.Warnf("Release on slot %s ignored, reserved count already zero", slotID)
	return nil
}

// CheckCapacity is an advisory read used to fail fast before touching the ledger.
// It never mutates; Reserve remains the authoritative check.
func (l *SlotLedger) CheckCapacity(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error {
	slot, err := l.slotRepo.FindByID(l.conn(ctx, tx), slotID)
	if err != nil {
		return fmt.Errorf("find slot %s: %w", slotID, err)
	}
	if slot == nil {
		return ErrSlotNotFound
	}
	if !slot.HasCapacity() {
		return ErrSlotFull
	}
	return nil
}

// SetAvailability soft-disables or re-enables a slot; slots are never deleted.
func (l *SlotLedger) SetAvailability(ctx context.Context, slotID uuid.UUID, available bool) (*entity.TimeSlot, error) {
	db := l.conn(ctx, nil)

	affected, err := l.slotRepo.SetAvailability(db, slotID, available)
	if err != nil {
		l.log.Warnf("Failed to set availability of slot %s: %+v", slotID, err)
		return nil, fmt.Errorf("set availability of slot %s: %w", slotID, err)
	}
	if affected == 0 {
		return nil, ErrSlotNotFound
	}

	slot, err := l.slotRepo.FindByID(db, slotID)
	if err != nil {
		return nil, fmt.Errorf("find slot %s: %w", slotID, err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}

// =============================================================================
// Slot resolution
// =============================================================================

// FindSlotFor returns the slot whose window contains `at`.
// When the day has no slots yet and business hours are configured for it,
// the day is materialized from the template and the lookup retried.
func (l *SlotLedger) FindSlotFor(ctx context.Context, tx *gorm.DB, at time.Time) (*entity.TimeSlot, error) {
	db := l.conn(ctx, tx)

	slot, err := l.slotRepo.FindCovering(db, at)
	if err != nil {
		return nil, fmt.Errorf("find slot covering %s: %w", at.Format(time.RFC3339), err)
	}
	if slot != nil {
		return slot, nil
	}

	created, err := l.Materialize(ctx, tx, at)
	if err != nil {
		return nil, err
	}
	if created == 0 {
		return nil, ErrSlotNotFound
	}

	slot, err = l.slotRepo.FindCovering(db, at)
	if err != nil {
		return nil, fmt.Errorf("find slot covering %s: %w", at.Format(time.RFC3339), err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}

// Materialize creates the slots of the calendar day containing `day` from the
// business-hours template. Existing slots are left untouched, so it is safe to
// call repeatedly and concurrently. Returns the number of slots inserted.
func (l *SlotLedger) Materialize(ctx context.Context, tx *gorm.DB, day time.Time) (int, error) {
	db := l.conn(ctx, tx)
	local := day.In(l.location)

	hours, err := l.hoursRepo.FindByWeekday(db, int(local.Weekday()))
	if err != nil {
		return 0, fmt.Errorf("find business hours for %s: %w", local.Weekday(), err)
	}
	if hours == nil || !hours.Active {
		return 0, nil
	}

	slots, err := hours.SlotsFor(local, l.location)
	if err != nil {
		l.log.Warnf("Business hours for %s are invalid: %+v", local.Weekday(), err)
		return 0, err
	}

	created, err := l.slotRepo.CreateIgnoringConflicts(db, slots)
	if err != nil {
		l.log.Warnf("Failed to materialize slots for %s: %+v", local.Format("2006-01-02"), err)
		return 0, fmt.Errorf("materialize %s: %w", local.Format("2006-01-02"), err)
	}

	if created > 0 {
		l.log.Infof("Materialized %d slots for %s", created, local.Format("2006-01-02"))
	}
	return int(created), nil
}

// BulkCreate seeds slots ahead of time, skipping windows that already exist.
func (l *SlotLedger) BulkCreate(ctx context.Context, slots []entity.TimeSlot) (int, error) {
	for i := range slots {
		slots[i].StartsAt = slots[i].StartsAt.UTC()
		slots[i].EndsAt = slots[i].EndsAt.UTC()
		slots[i].ReservedCount = 0
	}

	created, err := l.slotRepo.CreateIgnoringConflicts(l.conn(ctx, nil), slots)
	if err != nil {
		l.log.Warnf("Failed to bulk create %d slots: %+v", len(slots), err)
		return 0, fmt.Errorf("bulk create slots: %w", err)
	}

	l.log.Infof("Bulk created %d of %d slots", created, len(slots))
	return int(created), nil
}

// =============================================================================
// Listing
// =============================================================================

// ListAvailable yields slots in [from, to) that still have capacity and are at
// least durationMinutes long, in start order.
//
// The sequence is lazy (pages of pageSize rows are read on demand, keyed on
// starts_at), finite, and restartable: every range over it starts a fresh scan
// and reflects the ledger at that moment. It never mutates state.
func (l *SlotLedger) ListAvailable(ctx context.Context, from, to time.Time, durationMinutes int) iter.Seq2[entity.SlotAvailability, error] {
	return func(yield func(entity.SlotAvailability, error) bool) {
		var cursor time.Time
		for {
			if err := ctx.Err(); err != nil {
				yield(entity.SlotAvailability{}, err)
				return
			}

			slots, err := l.slotRepo.FindPage(l.conn(ctx, nil), &entity.SlotFilter{
				From:     from,
				To:       to,
				After:    cursor,
				OnlyOpen: true,
				Limit:    l.pageSize,
			})
			if err != nil {
				l.log.Warnf("Failed to list available slots: %+v", err)
				yield(entity.SlotAvailability{}, fmt.Errorf("list available slots: %w", err))
				return
			}

			for _, slot := range slots {
				cursor = slot.StartsAt
				if durationMinutes > 0 && slot.LengthMinutes() < durationMinutes {
					continue
				}
				if !yield(entity.SlotAvailability{Slot: slot, Available: slot.Remaining()}, nil) {
					return
				}
			}

			if len(slots) < l.pageSize {
				return
			}
		}
	}
}

// =============================================================================
// Private Helper Methods
// =============================================================================

func (l *SlotLedger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return l.db.WithContext(ctx)
}
