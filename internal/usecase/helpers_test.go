package usecase

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
	"vehicle-service-scheduling/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	testNow   = time.Date(2025, 11, 30, 12, 0, 0, 0, time.UTC)
	testStart = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
)

type stubLookup struct {
	mu          sync.Mutex
	summaries   map[uuid.UUID]*lookup.Summary
	unavailable map[uuid.UUID]bool
}

func (s *stubLookup) Fetch(ctx context.Context, kind lookup.Kind, id uuid.UUID, authToken string) (*lookup.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable[id] {
		return nil, lookup.ErrEntityUnavailable
	}
	summary, ok := s.summaries[id]
	if !ok || summary.Kind != kind {
		return nil, lookup.ErrEntityNotFound
	}
	copied := *summary
	return &copied, nil
}

func (s *stubLookup) add(kind lookup.Kind, id uuid.UUID, name string, owner *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[id] = &lookup.Summary{ID: id, Kind: kind, DisplayName: name, Exists: true, OwnerID: owner}
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Dispatch(recipientID uuid.UUID, message string, metadata map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

type testEnv struct {
	db        *gorm.DB
	ledger    *service.SlotLedger
	lookup    *stubLookup
	notifier  *countingNotifier
	bookings  AppointmentUsecase
	timeSlots TimeSlotUsecase
	staff     entity.Actor
}

func newTestEnv(t *testing.T) *testEnv {
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

	log := logrus.New()
	log.SetOutput(io.Discard)

	slotRepo := repository.NewTimeSlotRepository()
	hoursRepo := repository.NewBusinessHoursRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	historyRepo := repository.NewAppointmentHistoryRepository()

	env := &testEnv{
		db: db,
		lookup: &stubLookup{
			summaries:   make(map[uuid.UUID]*lookup.Summary),
			unavailable: make(map[uuid.UUID]bool),
		},
		notifier: &countingNotifier{},
		staff:    entity.Actor{ID: uuid.New(), RoleID: entity.RoleIDStaff},
	}
	clock := func() time.Time { return testNow }

	env.ledger = service.NewSlotLedger(db, log, slotRepo, hoursRepo, time.UTC, 50)
	history := service.NewHistoryRecorder(db, log, historyRepo)
	validator := service.NewBookingValidator(db, log, env.lookup, appointmentRepo, env.ledger).WithClock(clock)
	machine := service.NewAppointmentStateMachine(db, log, appointmentRepo, env.ledger, history, env.notifier).WithClock(clock)

	env.bookings = NewAppointmentUsecase(db, log, appointmentRepo, historyRepo, env.ledger, validator, machine, history, env.lookup, 60)
	env.timeSlots = NewTimeSlotUsecase(db, log, slotRepo, hoursRepo, env.ledger)
	return env
}

// customer registers a customer with one vehicle and returns the actor and vehicle id
func (e *testEnv) customer(name string) (entity.Actor, uuid.UUID) {
	id := uuid.New()
	vehicle := uuid.New()
	e.lookup.add(lookup.KindCustomer, id, name, nil)
	e.lookup.add(lookup.KindVehicle, vehicle, name+"'s car", &id)
	return entity.Actor{ID: id, RoleID: entity.RoleIDCustomer, AuthToken: "token-" + name}, vehicle
}

func (e *testEnv) employee(name string) uuid.UUID {
	id := uuid.New()
	e.lookup.add(lookup.KindEmployee, id, name, nil)
	return id
}

func (e *testEnv) seedSlot(t *testing.T, start time.Time, minutes, capacity int) *entity.TimeSlot {
	t.Helper()

	slot := &entity.TimeSlot{
		StartsAt:    start,
		EndsAt:      start.Add(time.Duration(minutes) * time.Minute),
		Capacity:    capacity,
		IsAvailable: true,
	}
	if err := e.db.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func (e *testEnv) reserved(t *testing.T, slotID uuid.UUID) int {
	t.Helper()

	var slot entity.TimeSlot
	if err := e.db.First(&slot, "id = ?", slotID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	return slot.ReservedCount
}
