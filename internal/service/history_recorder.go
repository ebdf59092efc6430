package service

import (
	"context"
	"fmt"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HistoryRecorder appends the audit trail of appointment status changes.
// Writes always go through the caller's transaction so the row commits
// together with the change it describes.
type HistoryRecorder interface {
	RecordTransition(ctx context.Context, tx *gorm.DB, appointmentID, actorID uuid.UUID, from, to entity.AppointmentStatus, reason string, metadata map[string]interface{}) error
	List(ctx context.Context, appointmentID uuid.UUID) ([]entity.AppointmentHistory, error)
}

type historyRecorder struct {
	db          *gorm.DB
	log         *logrus.Logger
	historyRepo repository.AppointmentHistoryRepository
}

func NewHistoryRecorder(db *gorm.DB, log *logrus.Logger, historyRepo repository.AppointmentHistoryRepository) HistoryRecorder {
	return &historyRecorder{
		db:          db,
		log:         log,
		historyRepo: historyRepo,
	}
}

// RecordTransition writes exactly one history row
func (r *historyRecorder) RecordTransition(ctx context.Context, tx *gorm.DB, appointmentID, actorID uuid.UUID, from, to entity.AppointmentStatus, reason string, metadata map[string]interface{}) error {
	row := &entity.AppointmentHistory{
		AppointmentID:  appointmentID,
		ActorID:        actorID,
		PreviousStatus: from,
		NewStatus:      to,
		Reason:         reason,
	}
	if len(metadata) > 0 {
		row.Metadata = datatypes.JSONMap(metadata)
	}

	if err := r.historyRepo.Create(tx.WithContext(ctx), row); err != nil {
		r.log.Warnf("Failed to record history for appointment %s: %+v", appointmentID, err)
		return fmt.Errorf("record history: %w", err)
	}

	return nil
}

// List returns the trail in chronological order
func (r *historyRecorder) List(ctx context.Context, appointmentID uuid.UUID) ([]entity.AppointmentHistory, error) {
	rows, err := r.historyRepo.FindByAppointmentID(r.db.WithContext(ctx), appointmentID)
	if err != nil {
		r.log.Warnf("Failed to list history for appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	return rows, nil
}
