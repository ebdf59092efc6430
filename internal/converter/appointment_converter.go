package converter

import (
	"time"

	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// names maps customer/vehicle/employee ids to display names; missing ids are left blank.
func AppointmentToResponse(appointment *entity.Appointment, names map[uuid.UUID]string, loc *time.Location) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	local := appointment.ScheduledAt.In(loc)
	response := &dto.AppointmentResponse{
		ID:                 appointment.ID,
		Customer:           dto.EntityRef{ID: appointment.CustomerID, DisplayName: names[appointment.CustomerID]},
		Vehicle:            dto.EntityRef{ID: appointment.VehicleID, DisplayName: names[appointment.VehicleID]},
		CreatedBy:          appointment.CreatedBy,
		TimeSlotID:         appointment.TimeSlotID,
		AppointmentType:    string(appointment.Type),
		ScheduledDate:      local.Format("2006-01-02"),
		ScheduledTime:      local.Format("15:04"),
		ScheduledAt:        appointment.ScheduledAt,
		EndsAt:             appointment.EndsAt,
		DurationMinutes:    appointment.DurationMinutes,
		Status:             string(appointment.Status),
		AllowedTransitions: statusesToStrings(appointment.Status.AllowedTargets()),
		ServiceDescription: appointment.ServiceDescription,
		CustomerNotes:      appointment.CustomerNotes,
		InternalNotes:      appointment.InternalNotes,
		CreatedAt:          appointment.CreatedAt,
		UpdatedAt:          appointment.UpdatedAt,
		CancelledAt:        appointment.CancelledAt,
		CompletedAt:        appointment.CompletedAt,
	}

	if appointment.EmployeeID != nil {
		response.Employee = &dto.EntityRef{ID: *appointment.EmployeeID, DisplayName: names[*appointment.EmployeeID]}
	}
	if appointment.EstimatedCost.Valid {
		cost := appointment.EstimatedCost.Decimal
		response.EstimatedCost = &cost
	}
	if appointment.TimeSlot != nil {
		response.TimeSlot = TimeSlotToResponse(appointment.TimeSlot, loc)
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment, names map[uuid.UUID]string, loc *time.Location) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i], names, loc)
	}
	return responses
}

// HistoryToResponses converts history rows to HistoryEntryResponse DTOs
func HistoryToResponses(rows []entity.AppointmentHistory) []dto.HistoryEntryResponse {
	responses := make([]dto.HistoryEntryResponse, len(rows))
	for i, row := range rows {
		responses[i] = dto.HistoryEntryResponse{
			ID:             row.ID,
			ActorID:        row.ActorID,
			PreviousStatus: string(row.PreviousStatus),
			NewStatus:      string(row.NewStatus),
			Reason:         row.Reason,
			Metadata:       row.Metadata,
			CreatedAt:      row.CreatedAt,
		}
	}
	return responses
}

func statusesToStrings(statuses []entity.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
