package repository

import (
	"vehicle-service-scheduling/internal/domain/entity"

	"gorm.io/gorm"
)

type BusinessHoursRepository interface {
	Upsert(db *gorm.DB, hours *entity.BusinessHours) error
	FindByWeekday(db *gorm.DB, weekday int) (*entity.BusinessHours, error)
	FindAll(db *gorm.DB) ([]entity.BusinessHours, error)
}
