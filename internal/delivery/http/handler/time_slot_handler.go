package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/usecase"
	"vehicle-service-scheduling/pkg/response"
	"vehicle-service-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type TimeSlotHandler struct {
	timeSlotUsecase usecase.TimeSlotUsecase
	validator       *validator.CustomValidator
	log             *logrus.Logger
}

func NewTimeSlotHandler(timeSlotUsecase usecase.TimeSlotUsecase, validator *validator.CustomValidator, log *logrus.Logger) *TimeSlotHandler {
	return &TimeSlotHandler{
		timeSlotUsecase: timeSlotUsecase,
		validator:       validator,
		log:             log,
	}
}

// ListAvailable handles GET /slots/available?from=YYYY-MM-DD&to=YYYY-MM-DD&duration=60
func (h *TimeSlotHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := dto.AvailableSlotsQuery{
		From: q.Get("from"),
		To:   q.Get("to"),
	}
	if query.To == "" {
		query.To = query.From
	}
	if raw := q.Get("duration"); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "duration must be a number of minutes")
			return
		}
		query.DurationMinutes = duration
	}

	if err := h.validator.Validate(&query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slots, err := h.timeSlotUsecase.ListAvailable(r.Context(), &query)
	if err != nil {
		writeError(w, h.log, err, "Failed to list available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

func (h *TimeSlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slot, err := h.timeSlotUsecase.CreateSlot(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to create slot")
		return
	}

	response.Success(w, http.StatusCreated, "Slot created successfully", slot)
}

func (h *TimeSlotHandler) BulkCreateSlots(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkCreateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.timeSlotUsecase.BulkCreateSlots(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to create slots")
		return
	}

	response.Success(w, http.StatusCreated, "Slots created successfully", result)
}

func (h *TimeSlotHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	slotID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid slot ID")
		return
	}

	var req dto.SetSlotAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slot, err := h.timeSlotUsecase.SetAvailability(r.Context(), slotID, *req.Available)
	if err != nil {
		writeError(w, h.log, err, "Failed to update slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot updated successfully", slot)
}

func (h *TimeSlotHandler) UpsertBusinessHours(w http.ResponseWriter, r *http.Request) {
	var req dto.BusinessHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	hours, err := h.timeSlotUsecase.UpsertBusinessHours(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to save business hours")
		return
	}

	response.Success(w, http.StatusOK, "Business hours saved successfully", hours)
}

func (h *TimeSlotHandler) ListBusinessHours(w http.ResponseWriter, r *http.Request) {
	hours, err := h.timeSlotUsecase.ListBusinessHours(r.Context())
	if err != nil {
		writeError(w, h.log, err, "Failed to get business hours")
		return
	}

	response.Success(w, http.StatusOK, "Business hours retrieved successfully", hours)
}

func (h *TimeSlotHandler) MaterializeSlots(w http.ResponseWriter, r *http.Request) {
	var req dto.MaterializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.timeSlotUsecase.MaterializeRange(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to materialize slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots materialized successfully", result)
}
