package repository

import (
	"vehicle-service-scheduling/internal/domain/entity"
	domainRepo "vehicle-service-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentHistoryRepository struct{}

func NewAppointmentHistoryRepository() domainRepo.AppointmentHistoryRepository {
	return &appointmentHistoryRepository{}
}

func (r *appointmentHistoryRepository) Create(db *gorm.DB, history *entity.AppointmentHistory) error {
	return db.Create(history).Error
}

// FindByAppointmentID returns the trail in the order it was written.
func (r *appointmentHistoryRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.AppointmentHistory, error) {
	var rows []entity.AppointmentHistory
	err := db.Where("appointment_id = ?", appointmentID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByAppointmentID is only used by the administrative hard delete.
func (r *appointmentHistoryRepository) DeleteByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (int64, error) {
	result := db.Where("appointment_id = ?", appointmentID).Delete(&entity.AppointmentHistory{})
	return result.RowsAffected, result.Error
}
