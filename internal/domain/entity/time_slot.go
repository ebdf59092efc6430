package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeSlot is a bookable workshop window with a finite number of concurrent appointments.
// ReservedCount is only ever changed through the slot ledger's conditional updates.
type TimeSlot struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StartsAt      time.Time `gorm:"not null;uniqueIndex" json:"starts_at"`
	EndsAt        time.Time `gorm:"not null" json:"ends_at"`
	Capacity      int       `gorm:"not null" json:"capacity"`
	ReservedCount int       `gorm:"not null" json:"reserved_count"`
	IsAvailable   bool      `gorm:"not null;index" json:"is_available"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

func (s *TimeSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Remaining returns the capacity still free, never negative
func (s *TimeSlot) Remaining() int {
	if !s.IsAvailable || s.ReservedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.ReservedCount
}

// HasCapacity checks if at least one more appointment fits
func (s *TimeSlot) HasCapacity() bool {
	return s.Remaining() > 0
}

// Covers checks if `at` falls inside [StartsAt, EndsAt)
func (s *TimeSlot) Covers(at time.Time) bool {
	return !at.Before(s.StartsAt) && at.Before(s.EndsAt)
}

// LengthMinutes returns the slot length in minutes
func (s *TimeSlot) LengthMinutes() int {
	return int(s.EndsAt.Sub(s.StartsAt) / time.Minute)
}

// Date returns the calendar date of the slot in loc (YYYY-MM-DD)
func (s *TimeSlot) Date(loc *time.Location) string {
	return s.StartsAt.In(loc).Format("2006-01-02")
}

// StartTime returns the HH:MM start of the slot in loc
func (s *TimeSlot) StartTime(loc *time.Location) string {
	return s.StartsAt.In(loc).Format("15:04")
}

// EndTime returns the HH:MM end of the slot in loc
func (s *TimeSlot) EndTime(loc *time.Location) string {
	return s.EndsAt.In(loc).Format("15:04")
}

// SlotAvailability pairs a slot with its free capacity at read time
type SlotAvailability struct {
	Slot      TimeSlot
	Available int
}
