package repository

import (
	"time"

	"vehicle-service-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByCustomerID(db *gorm.DB, customerID uuid.UUID) ([]entity.Appointment, error)
	FindEmployeeOverlap(db *gorm.DB, employeeID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (*entity.Appointment, error)
	FindActiveForCustomerAt(db *gorm.DB, customerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*entity.Appointment, error)
	UpdateStatus(db *gorm.DB, appointment *entity.Appointment, from entity.AppointmentStatus) (int64, error)
	UpdateSchedule(db *gorm.DB, appointment *entity.Appointment, previous *entity.Appointment) (int64, error)
	UpdateEmployee(db *gorm.DB, appointment *entity.Appointment) (int64, error)
	Delete(db *gorm.DB, appointment *entity.Appointment) (int64, error)
}
