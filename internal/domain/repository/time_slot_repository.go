package repository

import (
	"time"

	"vehicle-service-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TimeSlotRepository interface {
	Create(db *gorm.DB, slot *entity.TimeSlot) error
	CreateIgnoringConflicts(db *gorm.DB, slots []entity.TimeSlot) (int64, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error)
	FindCovering(db *gorm.DB, at time.Time) (*entity.TimeSlot, error)
	FindPage(db *gorm.DB, filter *entity.SlotFilter) ([]entity.TimeSlot, error)
	IncrementReserved(db *gorm.DB, id uuid.UUID) (int64, error)
	DecrementReserved(db *gorm.DB, id uuid.UUID) (int64, error)
	SetAvailability(db *gorm.DB, id uuid.UUID, available bool) (int64, error)
}
