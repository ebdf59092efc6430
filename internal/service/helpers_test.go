package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/infrastructure/database"
	"vehicle-service-scheduling/internal/infrastructure/lookup"
	"vehicle-service-scheduling/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLiteConnection("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestLedger(db *gorm.DB, pageSize int) *SlotLedger {
	return NewSlotLedger(db, newTestLogger(), repository.NewTimeSlotRepository(), repository.NewBusinessHoursRepository(), time.UTC, pageSize)
}

func seedSlot(t *testing.T, db *gorm.DB, start time.Time, minutes, capacity int) *entity.TimeSlot {
	t.Helper()

	slot := &entity.TimeSlot{
		StartsAt:    start.UTC(),
		EndsAt:      start.Add(time.Duration(minutes) * time.Minute).UTC(),
		Capacity:    capacity,
		IsAvailable: true,
	}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func reloadSlot(t *testing.T, db *gorm.DB, id uuid.UUID) *entity.TimeSlot {
	t.Helper()

	var slot entity.TimeSlot
	if err := db.First(&slot, "id = ?", id).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	return &slot
}

// fakeLookup answers from fixed maps; ids in unavailable simulate a failing profile service.
type fakeLookup struct {
	mu          sync.Mutex
	summaries   map[uuid.UUID]*lookup.Summary
	unavailable map[uuid.UUID]bool
	calls       int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		summaries:   make(map[uuid.UUID]*lookup.Summary),
		unavailable: make(map[uuid.UUID]bool),
	}
}

func (f *fakeLookup) add(kind lookup.Kind, id uuid.UUID, name string, owner *uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[id] = &lookup.Summary{ID: id, Kind: kind, DisplayName: name, Exists: true, OwnerID: owner}
}

func (f *fakeLookup) Fetch(ctx context.Context, kind lookup.Kind, id uuid.UUID, authToken string) (*lookup.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.unavailable[id] {
		return nil, lookup.ErrEntityUnavailable
	}
	summary, ok := f.summaries[id]
	if !ok || summary.Kind != kind {
		return nil, lookup.ErrEntityNotFound
	}
	copied := *summary
	return &copied, nil
}

// recordingNotifier collects dispatched notifications synchronously.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Dispatch(recipientID uuid.UUID, message string, metadata map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

var (
	scenarioNow   = time.Date(2025, 11, 30, 12, 0, 0, 0, time.UTC)
	scenarioStart = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time {
	return scenarioNow
}

func seedAppointment(t *testing.T, db *gorm.DB, slot *entity.TimeSlot, customerID uuid.UUID, employeeID *uuid.UUID, at time.Time, status entity.AppointmentStatus) *entity.Appointment {
	t.Helper()

	appointment := &entity.Appointment{
		CustomerID:      customerID,
		VehicleID:       uuid.New(),
		EmployeeID:      employeeID,
		CreatedBy:       customerID,
		TimeSlotID:      slot.ID,
		Type:            entity.AppointmentTypeMaintenance,
		DurationMinutes: 60,
	}
	appointment.SetSchedule(at, slot.ID)
	appointment.ApplyStatus(status, scenarioNow)
	if err := db.Omit("TimeSlot", "History").Create(appointment).Error; err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return appointment
}
