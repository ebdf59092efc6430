package repository

import (
	"vehicle-service-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentHistoryRepository interface {
	Create(db *gorm.DB, history *entity.AppointmentHistory) error
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.AppointmentHistory, error)
	DeleteByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (int64, error)
}
