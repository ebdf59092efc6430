package entity

import (
	"errors"
	"time"
)

var ErrInvalidBusinessHours = errors.New("invalid business hours")

// BusinessHours is the weekly template used to materialize time slots on demand
type BusinessHours struct {
	ID           int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Weekday      int       `gorm:"not null;uniqueIndex" json:"weekday"`
	OpenTime     string    `gorm:"type:varchar(5);not null" json:"open_time"`
	CloseTime    string    `gorm:"type:varchar(5);not null" json:"close_time"`
	BreakStart   string    `gorm:"type:varchar(5)" json:"break_start"`
	BreakEnd     string    `gorm:"type:varchar(5)" json:"break_end"`
	SlotMinutes  int       `gorm:"not null" json:"slot_minutes"`
	SlotCapacity int       `gorm:"not null" json:"slot_capacity"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BusinessHours) TableName() string {
	return "business_hours"
}

// SlotsFor lays out the slots of `day` (interpreted in loc), skipping the break window.
// Returned slots are in UTC and not yet persisted.
func (b *BusinessHours) SlotsFor(day time.Time, loc *time.Location) ([]TimeSlot, error) {
	if b.SlotMinutes <= 0 || b.SlotCapacity <= 0 {
		return nil, ErrInvalidBusinessHours
	}

	day = day.In(loc)
	parseHM := func(hm string) (time.Time, error) {
		t, err := time.Parse("15:04", hm)
		if err != nil {
			return time.Time{}, ErrInvalidBusinessHours
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}

	open, err := parseHM(b.OpenTime)
	if err != nil {
		return nil, err
	}
	closing, err := parseHM(b.CloseTime)
	if err != nil {
		return nil, err
	}
	if !open.Before(closing) {
		return nil, ErrInvalidBusinessHours
	}

	hasBreak := b.BreakStart != "" && b.BreakEnd != ""
	var breakStart, breakEnd time.Time
	if hasBreak {
		if breakStart, err = parseHM(b.BreakStart); err != nil {
			return nil, err
		}
		if breakEnd, err = parseHM(b.BreakEnd); err != nil {
			return nil, err
		}
		if !breakStart.Before(breakEnd) || breakStart.Before(open) || breakEnd.After(closing) {
			return nil, ErrInvalidBusinessHours
		}
	}

	step := time.Duration(b.SlotMinutes) * time.Minute
	var slots []TimeSlot
	for cur := open; !cur.Add(step).After(closing); cur = cur.Add(step) {
		end := cur.Add(step)
		if hasBreak && cur.Before(breakEnd) && end.After(breakStart) {
			continue
		}
		slots = append(slots, TimeSlot{
			StartsAt:    cur.UTC(),
			EndsAt:      end.UTC(),
			Capacity:    b.SlotCapacity,
			IsAvailable: true,
		})
	}

	return slots, nil
}
