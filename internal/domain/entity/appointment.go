package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Appointment is a booking of a vehicle into a workshop time slot
type Appointment struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"customer_id"`
	VehicleID          uuid.UUID           `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	EmployeeID         *uuid.UUID          `gorm:"type:uuid;index" json:"employee_id,omitempty"`
	CreatedBy          uuid.UUID           `gorm:"type:uuid;not null" json:"created_by"`
	TimeSlotID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"time_slot_id"`
	Type               AppointmentType     `gorm:"column:appointment_type;type:varchar(20);not null" json:"appointment_type"`
	ScheduledAt        time.Time           `gorm:"not null;index" json:"scheduled_at"`
	DurationMinutes    int                 `gorm:"not null" json:"duration_minutes"`
	EndsAt             time.Time           `gorm:"not null;index" json:"ends_at"`
	Status             AppointmentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	ServiceDescription string              `gorm:"type:text" json:"service_description"`
	CustomerNotes      string              `gorm:"type:text" json:"customer_notes"`
	InternalNotes      string              `gorm:"type:text" json:"internal_notes"`
	EstimatedCost      decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"estimated_cost"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`

	// Relationships
	TimeSlot *TimeSlot            `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
	History  []AppointmentHistory `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Duration returns the booked duration
func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// SetSchedule moves the appointment to start at `at` inside slotID, keeping its duration
func (a *Appointment) SetSchedule(at time.Time, slotID uuid.UUID) {
	a.ScheduledAt = at.UTC()
	a.EndsAt = a.ScheduledAt.Add(a.Duration())
	a.TimeSlotID = slotID
}

// ApplyStatus sets the status and keeps cancelled_at/completed_at consistent with it
func (a *Appointment) ApplyStatus(status AppointmentStatus, at time.Time) {
	a.Status = status
	a.UpdatedAt = at
	a.CancelledAt = nil
	a.CompletedAt = nil
	switch status {
	case StatusCancelled:
		a.CancelledAt = &at
	case StatusCompleted:
		a.CompletedAt = &at
	}
}

// IsActive checks if the appointment still occupies workshop time
func (a *Appointment) IsActive() bool {
	return !a.Status.IsTerminal()
}
