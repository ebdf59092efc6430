package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/delivery/http/middleware"
	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/usecase"
	"vehicle-service-scheduling/pkg/response"
	"vehicle-service-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
	log                *logrus.Logger
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator, log *logrus.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
		log:                log,
	}
}

type transitionFunc func(ctx context.Context, actor entity.Actor, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Create(r.Context(), actor, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.log, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) ListCustomerAppointments(w http.ResponseWriter, r *http.Request) {
	actor, customerID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	appointments, err := h.appointmentUsecase.ListByCustomer(r.Context(), actor, customerID)
	if err != nil {
		writeError(w, h.log, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Confirm, "Appointment confirmed successfully")
}

func (h *AppointmentHandler) StartAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Start, "Appointment started successfully")
}

func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Complete, "Appointment completed successfully")
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Cancel, "Appointment cancelled successfully")
}

func (h *AppointmentHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.MarkNoShow, "Appointment marked as no-show")
}

func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Reschedule(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to reschedule appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment rescheduled successfully", appointment)
}

func (h *AppointmentHandler) AssignEmployee(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.AssignEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Assign(r.Context(), actor, id, req.EmployeeID)
	if err != nil {
		writeError(w, h.log, err, "Failed to assign employee")
		return
	}

	response.Success(w, http.StatusOK, "Employee assigned successfully", appointment)
}

func (h *AppointmentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	history, err := h.appointmentUsecase.GetHistory(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.log, err, "Failed to get appointment history")
		return
	}

	response.Success(w, http.StatusOK, "Appointment history retrieved successfully", history)
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.appointmentUsecase.Delete(r.Context(), actor, id); err != nil {
		writeError(w, h.log, err, "Failed to delete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment deleted successfully", nil)
}

// transition handles the status endpoints; the body is optional and only carries a reason
func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc, message string) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := apply(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(w, h.log, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, message, appointment)
}

func (h *AppointmentHandler) actorAndID(w http.ResponseWriter, r *http.Request) (entity.Actor, uuid.UUID, bool) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return entity.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid ID")
		return entity.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}
