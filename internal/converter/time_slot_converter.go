package converter

import (
	"time"

	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/domain/entity"
)

// TimeSlotToResponse converts a TimeSlot entity to TimeSlotResponse DTO, with
// date and clock times expressed in loc
func TimeSlotToResponse(slot *entity.TimeSlot, loc *time.Location) *dto.TimeSlotResponse {
	if slot == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	return &dto.TimeSlotResponse{
		ID:            slot.ID,
		Date:          slot.Date(loc),
		StartTime:     slot.StartTime(loc),
		EndTime:       slot.EndTime(loc),
		StartsAt:      slot.StartsAt,
		EndsAt:        slot.EndsAt,
		Capacity:      slot.Capacity,
		ReservedCount: slot.ReservedCount,
		Available:     slot.Remaining(),
		IsAvailable:   slot.IsAvailable,
	}
}

// SlotAvailabilityToResponse uses the capacity observed when the slot was listed
func SlotAvailabilityToResponse(item entity.SlotAvailability, loc *time.Location) dto.TimeSlotResponse {
	response := TimeSlotToResponse(&item.Slot, loc)
	response.Available = item.Available
	return *response
}

func BusinessHoursToResponse(hours *entity.BusinessHours) *dto.BusinessHoursResponse {
	if hours == nil {
		return nil
	}

	return &dto.BusinessHoursResponse{
		Weekday:      hours.Weekday,
		OpenTime:     hours.OpenTime,
		CloseTime:    hours.CloseTime,
		BreakStart:   hours.BreakStart,
		BreakEnd:     hours.BreakEnd,
		SlotMinutes:  hours.SlotMinutes,
		SlotCapacity: hours.SlotCapacity,
		Active:       hours.Active,
		UpdatedAt:    hours.UpdatedAt,
	}
}

func BusinessHoursToResponses(rows []entity.BusinessHours) []dto.BusinessHoursResponse {
	responses := make([]dto.BusinessHoursResponse, len(rows))
	for i := range rows {
		responses[i] = *BusinessHoursToResponse(&rows[i])
	}
	return responses
}
