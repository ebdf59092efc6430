package handler

import (
	"errors"
	"net/http"

	"vehicle-service-scheduling/internal/infrastructure/lookup"
	"vehicle-service-scheduling/internal/service"
	"vehicle-service-scheduling/internal/usecase"
	"vehicle-service-scheduling/pkg/apperror"
	"vehicle-service-scheduling/pkg/response"

	"github.com/sirupsen/logrus"
)

// statusByCode maps business error codes onto HTTP statuses
var statusByCode = map[string]int{
	service.ErrSlotFull.Code:              http.StatusConflict,
	service.ErrSlotNotFound.Code:          http.StatusNotFound,
	service.ErrIllegalTransition.Code:     http.StatusConflict,
	usecase.ErrConflictingAssignment.Code: http.StatusConflict,
	usecase.ErrAppointmentNotFound.Code:   http.StatusNotFound,
	usecase.ErrAppointmentNotOwned.Code:   http.StatusForbidden,
	usecase.ErrCustomerRequired.Code:      http.StatusBadRequest,
	usecase.ErrInvalidSchedule.Code:       http.StatusBadRequest,
	usecase.ErrSlotExists.Code:            http.StatusConflict,
	usecase.ErrInvalidSlotWindow.Code:     http.StatusBadRequest,
	usecase.ErrInvalidDateRange.Code:      http.StatusBadRequest,
	usecase.ErrDateRangeTooLarge.Code:     http.StatusBadRequest,
	usecase.ErrInvalidBusinessHours.Code:  http.StatusBadRequest,
	lookup.ErrEntityNotFound.Code:         http.StatusNotFound,
	lookup.ErrEntityUnavailable.Code:      http.StatusServiceUnavailable,
}

// writeError translates an engine error into a response. Anything without a
// code is logged and reported as an internal error with the fallback message.
func writeError(w http.ResponseWriter, log *logrus.Logger, err error, fallback string) {
	var validationErr *apperror.ValidationError
	if errors.As(err, &validationErr) {
		status := http.StatusUnprocessableEntity
		switch {
		case validationErr.OnlyTransient():
			status = http.StatusServiceUnavailable
		case onlySlotViolations(validationErr):
			status = http.StatusConflict
		}
		response.Error(w, status, apperror.CodeValidationFailed, validationErr.Error(), validationErr.Violations)
		return
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status, ok := statusByCode[appErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		response.Error(w, status, appErr.Code, appErr.Message, nil)
		return
	}

	log.Errorf("%s: %+v", fallback, err)
	response.InternalServerError(w, fallback)
}

func onlySlotViolations(err *apperror.ValidationError) bool {
	for _, v := range err.Violations {
		if v.Code != service.CodeSlotFull && v.Code != service.CodeSlotNotFound {
			return false
		}
	}
	return len(err.Violations) > 0
}
