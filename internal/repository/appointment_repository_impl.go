package repository

import (
	"errors"
	"time"

	"vehicle-service-scheduling/internal/domain/entity"
	domainRepo "vehicle-service-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Omit("TimeSlot", "History").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Preload("TimeSlot").Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// FindByIDForUpdate loads the row and locks it until tx ends. The slot is not preloaded.
func (r *appointmentRepository) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByCustomerID(db *gorm.DB, customerID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Preload("TimeSlot").
		Where("customer_id = ?", customerID).
		Order("scheduled_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// FindEmployeeOverlap returns an active appointment of the employee intersecting [start, end), if any.
func (r *appointmentRepository) FindEmployeeOverlap(db *gorm.DB, employeeID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("employee_id = ? AND status IN ? AND scheduled_at < ? AND ends_at > ? AND id <> ?",
		employeeID, entity.ActiveStatuses(), end.UTC(), start.UTC(), excludeID).
		Order("scheduled_at ASC").
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// FindActiveForCustomerAt returns an active appointment of the customer starting exactly at `at`.
func (r *appointmentRepository) FindActiveForCustomerAt(db *gorm.DB, customerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("customer_id = ? AND scheduled_at = ? AND status IN ? AND id <> ?",
		customerID, at.UTC(), entity.ActiveStatuses(), excludeID).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// UpdateStatus writes the appointment's status fields ONLY if the stored row still has status `from`
// and the schedule the caller loaded. Returns affected rows: 1 = success, 0 = the row moved concurrently
// (prevents double-cancel and releasing a slot the appointment no longer holds).
func (r *appointmentRepository) UpdateStatus(db *gorm.DB, appointment *entity.Appointment, from entity.AppointmentStatus) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ? AND time_slot_id = ? AND scheduled_at = ?",
			appointment.ID, from, appointment.TimeSlotID, appointment.ScheduledAt.UTC()).
		Updates(map[string]interface{}{
			"status":       appointment.Status,
			"cancelled_at": appointment.CancelledAt,
			"completed_at": appointment.CompletedAt,
			"updated_at":   appointment.UpdatedAt,
		})
	return result.RowsAffected, result.Error
}

// UpdateSchedule moves the appointment, guarded by the status and schedule of previous.
func (r *appointmentRepository) UpdateSchedule(db *gorm.DB, appointment *entity.Appointment, previous *entity.Appointment) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ? AND time_slot_id = ? AND scheduled_at = ?",
			previous.ID, previous.Status, previous.TimeSlotID, previous.ScheduledAt.UTC()).
		Updates(map[string]interface{}{
			"scheduled_at": appointment.ScheduledAt,
			"ends_at":      appointment.EndsAt,
			"time_slot_id": appointment.TimeSlotID,
			"updated_at":   appointment.UpdatedAt,
		})
	return result.RowsAffected, result.Error
}

// UpdateEmployee assigns the employee, guarded by the appointment's current status and start time.
func (r *appointmentRepository) UpdateEmployee(db *gorm.DB, appointment *entity.Appointment) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ? AND scheduled_at = ?", appointment.ID, appointment.Status, appointment.ScheduledAt.UTC()).
		Updates(map[string]interface{}{
			"employee_id": appointment.EmployeeID,
			"updated_at":  appointment.UpdatedAt,
		})
	return result.RowsAffected, result.Error
}

// Delete removes the appointment only while it still has the status and slot the caller saw.
func (r *appointmentRepository) Delete(db *gorm.DB, appointment *entity.Appointment) (int64, error) {
	result := db.Where("id = ? AND status = ? AND time_slot_id = ?", appointment.ID, appointment.Status, appointment.TimeSlotID).
		Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}
