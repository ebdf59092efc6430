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

type timeSlotRepository struct{}

func NewTimeSlotRepository() domainRepo.TimeSlotRepository {
	return &timeSlotRepository{}
}

func (r *timeSlotRepository) Create(db *gorm.DB, slot *entity.TimeSlot) error {
	return db.Create(slot).Error
}

// CreateIgnoringConflicts inserts slots, silently skipping any whose start already exists.
// Returns the number of rows actually inserted.
func (r *timeSlotRepository) CreateIgnoringConflicts(db *gorm.DB, slots []entity.TimeSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&slots)
	return result.RowsAffected, result.Error
}

func (r *timeSlotRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error) {
	var slot entity.TimeSlot
	err := db.Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// FindCovering returns the slot whose window contains `at`, regardless of capacity.
func (r *timeSlotRepository) FindCovering(db *gorm.DB, at time.Time) (*entity.TimeSlot, error) {
	var slot entity.TimeSlot
	err := db.Where("starts_at <= ? AND ends_at > ?", at.UTC(), at.UTC()).
		Order("starts_at DESC").
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// FindPage returns slots ordered by start time using starts_at as a keyset cursor.
func (r *timeSlotRepository) FindPage(db *gorm.DB, filter *entity.SlotFilter) ([]entity.TimeSlot, error) {
	var slots []entity.TimeSlot
	query := db.Model(&entity.TimeSlot{})

	if filter != nil {
		if !filter.From.IsZero() {
			query = query.Where("starts_at >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			query = query.Where("starts_at < ?", filter.To.UTC())
		}
		if !filter.After.IsZero() {
			query = query.Where("starts_at > ?", filter.After.UTC())
		}
		if filter.OnlyOpen {
			query = query.Where("is_available = ? AND reserved_count < capacity", true)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
	}

	err := query.Order("starts_at ASC").Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// IncrementReserved takes one unit of capacity in a single conditional update.
// Returns affected rows: 1 = reserved, 0 = slot missing, disabled or full.
func (r *timeSlotRepository) IncrementReserved(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ? AND is_available = ? AND reserved_count < capacity", id, true).
		Update("reserved_count", gorm.Expr("reserved_count + ?", 1))
	return result.RowsAffected, result.Error
}

// DecrementReserved gives back one unit of capacity, never going below zero.
// Returns affected rows: 1 = released, 0 = slot missing or already empty.
func (r *timeSlotRepository) DecrementReserved(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ? AND reserved_count > 0", id).
		Update("reserved_count", gorm.Expr("reserved_count - ?", 1))
	return result.RowsAffected, result.Error
}

func (r *timeSlotRepository) SetAvailability(db *gorm.DB, id uuid.UUID, available bool) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ?", id).
		Update("is_available", available)
	return result.RowsAffected, result.Error
}
