package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type AvailableSlotsQuery struct {
	From            string `validate:"required,datetime=2006-01-02"` // Format: YYYY-MM-DD
	To              string `validate:"required,datetime=2006-01-02"` // inclusive
	DurationMinutes int    `validate:"omitempty,min=1,max=480"`
}

type CreateSlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Capacity  int    `json:"capacity" validate:"required,min=1"`
}

type BulkCreateSlotsRequest struct {
	Slots []CreateSlotRequest `json:"slots" validate:"required,min=1,max=1000,dive"`
}

type SetSlotAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type BusinessHoursRequest struct {
	Weekday      *int   `json:"weekday" validate:"required,gte=0,lte=6"` // 0 = Sunday
	OpenTime     string `json:"open_time" validate:"required,clock"`
	CloseTime    string `json:"close_time" validate:"required,clock"`
	BreakStart   string `json:"break_start" validate:"omitempty,clock"`
	BreakEnd     string `json:"break_end" validate:"omitempty,clock"`
	SlotMinutes  int    `json:"slot_minutes" validate:"required,min=5,max=480"`
	SlotCapacity int    `json:"slot_capacity" validate:"required,min=1"`
	Active       bool   `json:"active"`
}

type MaterializeRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// Response DTOs

type TimeSlotResponse struct {
	ID            uuid.UUID `json:"id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Capacity      int       `json:"capacity"`
	ReservedCount int       `json:"reserved_count"`
	Available     int       `json:"available"`
	IsAvailable   bool      `json:"is_available"`
}

type TimeSlotListResponse struct {
	Slots []TimeSlotResponse `json:"slots"`
	Total int                `json:"total"`
}

type BulkCreateSlotsResponse struct {
	Requested int `json:"requested"`
	Created   int `json:"created"`
}

type MaterializeResponse struct {
	Days    int `json:"days"`
	Created int `json:"created"`
}

type BusinessHoursResponse struct {
	Weekday      int       `json:"weekday"`
	OpenTime     string    `json:"open_time"`
	CloseTime    string    `json:"close_time"`
	BreakStart   string    `json:"break_start,omitempty"`
	BreakEnd     string    `json:"break_end,omitempty"`
	SlotMinutes  int       `json:"slot_minutes"`
	SlotCapacity int       `json:"slot_capacity"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BusinessHoursListResponse struct {
	BusinessHours []BusinessHoursResponse `json:"business_hours"`
	Total         int                     `json:"total"`
}
