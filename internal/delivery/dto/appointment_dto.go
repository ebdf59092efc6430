package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateAppointmentRequest struct {
	CustomerID         uuid.UUID        `json:"customer_id"` // defaults to the caller for customers
	VehicleID          uuid.UUID        `json:"vehicle_id" validate:"required"`
	EmployeeID         *uuid.UUID       `json:"employee_id" validate:"omitempty"`
	AppointmentType    string           `json:"appointment_type" validate:"required,oneof=maintenance repair inspection diagnostic emergency"`
	ScheduledDate      string           `json:"scheduled_date" validate:"required,datetime=2006-01-02"` // Format: YYYY-MM-DD
	ScheduledTime      string           `json:"scheduled_time" validate:"required,clock"`               // Format: HH:MM
	DurationMinutes    int              `json:"duration_minutes" validate:"omitempty,min=15,max=480"`
	ServiceDescription string           `json:"service_description" validate:"max=2000"`
	CustomerNotes      string           `json:"customer_notes" validate:"max=2000"`
	InternalNotes      string           `json:"internal_notes" validate:"max=2000"`
	EstimatedCost      *decimal.Decimal `json:"estimated_cost"`
	ValidateAll        bool             `json:"validate_all"`
}

type TransitionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RescheduleRequest struct {
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"required,clock"`
	Reason        string `json:"reason" validate:"max=500"`
}

type AssignEmployeeRequest struct {
	EmployeeID uuid.UUID `json:"employee_id" validate:"required"`
}

// Response DTOs

type EntityRef struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Customer           EntityRef         `json:"customer"`
	Vehicle            EntityRef         `json:"vehicle"`
	Employee           *EntityRef        `json:"employee,omitempty"`
	CreatedBy          uuid.UUID         `json:"created_by"`
	TimeSlotID         uuid.UUID         `json:"time_slot_id"`
	AppointmentType    string            `json:"appointment_type"`
	ScheduledDate      string            `json:"scheduled_date"`
	ScheduledTime      string            `json:"scheduled_time"`
	ScheduledAt        time.Time         `json:"scheduled_at"`
	EndsAt             time.Time         `json:"ends_at"`
	DurationMinutes    int               `json:"duration_minutes"`
	Status             string            `json:"status"`
	AllowedTransitions []string          `json:"allowed_transitions"`
	ServiceDescription string            `json:"service_description"`
	CustomerNotes      string            `json:"customer_notes"`
	InternalNotes      string            `json:"internal_notes,omitempty"`
	EstimatedCost      *decimal.Decimal  `json:"estimated_cost,omitempty"`
	TimeSlot           *TimeSlotResponse `json:"time_slot,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type HistoryEntryResponse struct {
	ID             int64                  `json:"id"`
	ActorID        uuid.UUID              `json:"actor_id"`
	PreviousStatus string                 `json:"previous_status"`
	NewStatus      string                 `json:"new_status"`
	Reason         string                 `json:"reason"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

type HistoryListResponse struct {
	AppointmentID uuid.UUID              `json:"appointment_id"`
	Entries       []HistoryEntryResponse `json:"entries"`
	Total         int                    `json:"total"`
}
