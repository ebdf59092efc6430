package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AppointmentHistory is one append-only entry of an appointment's status trail
type AppointmentHistory struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"appointment_id"`
	ActorID        uuid.UUID         `gorm:"type:uuid;not null" json:"actor_id"`
	PreviousStatus AppointmentStatus `gorm:"type:varchar(20)" json:"previous_status"`
	NewStatus      AppointmentStatus `gorm:"type:varchar(20);not null" json:"new_status"`
	Reason         string            `gorm:"type:text" json:"reason"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AppointmentHistory) TableName() string {
	return "appointment_histories"
}
