package repository

import (
	"errors"

	"vehicle-service-scheduling/internal/domain/entity"
	domainRepo "vehicle-service-scheduling/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type businessHoursRepository struct{}

func NewBusinessHoursRepository() domainRepo.BusinessHoursRepository {
	return &businessHoursRepository{}
}

// Upsert stores the template for hours.Weekday, replacing any existing one.
func (r *businessHoursRepository) Upsert(db *gorm.DB, hours *entity.BusinessHours) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "weekday"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open_time", "close_time", "break_start", "break_end",
			"slot_minutes", "slot_capacity", "active", "updated_at",
		}),
	}).Create(hours).Error
}

func (r *businessHoursRepository) FindByWeekday(db *gorm.DB, weekday int) (*entity.BusinessHours, error) {
	var hours entity.BusinessHours
	err := db.Where("weekday = ?", weekday).First(&hours).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hours, nil
}

func (r *businessHoursRepository) FindAll(db *gorm.DB) ([]entity.BusinessHours, error) {
	var hours []entity.BusinessHours
	err := db.Order("weekday ASC").Find(&hours).Error
	if err != nil {
		return nil, err
	}
	return hours, nil
}
