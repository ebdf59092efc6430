package usecase

import (
	"context"
	"errors"
	"time"

	"vehicle-service-scheduling/internal/converter"
	"vehicle-service-scheduling/internal/delivery/dto"
	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/domain/repository"
	"vehicle-service-scheduling/internal/service"
	"vehicle-service-scheduling/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxRangeDays = 31

var (
	ErrSlotExists           = apperror.New("slot_exists", "A time slot starting at that time already exists")
	ErrInvalidSlotWindow    = apperror.New("invalid_slot_window", "Slot end time must be after its start time")
	ErrInvalidDateRange     = apperror.New("invalid_date_range", "Invalid date range, use YYYY-MM-DD and keep 'to' on or after 'from'")
	ErrDateRangeTooLarge    = apperror.New("date_range_too_large", "Date range may span at most 31 days")
	ErrInvalidBusinessHours = apperror.New("invalid_business_hours", "Business hours must open before they close and the break must fall inside them")
)

type TimeSlotUsecase interface {
	ListAvailable(ctx context.Context, query *dto.AvailableSlotsQuery) (*dto.TimeSlotListResponse, error)
	CreateSlot(ctx context.Context, req *dto.CreateSlotRequest) (*dto.TimeSlotResponse, error)
	BulkCreateSlots(ctx context.Context, req *dto.BulkCreateSlotsRequest) (*dto.BulkCreateSlotsResponse, error)
	SetAvailability(ctx context.Context, slotID uuid.UUID, available bool) (*dto.TimeSlotResponse, error)
	UpsertBusinessHours(ctx context.Context, req *dto.BusinessHoursRequest) (*dto.BusinessHoursResponse, error)
	ListBusinessHours(ctx context.Context) (*dto.BusinessHoursListResponse, error)
	MaterializeRange(ctx context.Context, req *dto.MaterializeRequest) (*dto.MaterializeResponse, error)
}

type timeSlotUsecase struct {
	db        *gorm.DB
	log       *logrus.Logger
	slotRepo  repository.TimeSlotRepository
	hoursRepo repository.BusinessHoursRepository
	ledger    *service.SlotLedger
}

func NewTimeSlotUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	slotRepo repository.TimeSlotRepository,
	hoursRepo repository.BusinessHoursRepository,
	ledger *service.SlotLedger,
) TimeSlotUsecase {
	return &timeSlotUsecase{
		db:        db,
		log:       log,
		slotRepo:  slotRepo,
		hoursRepo: hoursRepo,
		ledger:    ledger,
	}
}

// ListAvailable returns the open slots of the inclusive date range.
// Days with business hours but no slots yet are materialized first.
func (u *timeSlotUsecase) ListAvailable(ctx context.Context, query *dto.AvailableSlotsQuery) (*dto.TimeSlotListResponse, error) {
	from, to, err := u.parseRange(query.From, query.To)
	if err != nil {
		return nil, err
	}

	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if _, err := u.ledger.Materialize(ctx, nil, day); err != nil && !errors.Is(err, entity.ErrInvalidBusinessHours) {
			return nil, err
		}
	}

	loc := u.ledger.Location()
	slots := []dto.TimeSlotResponse{}
	for item, err := range u.ledger.ListAvailable(ctx, from, to, query.DurationMinutes) {
		if err != nil {
			return nil, err
		}
		slots = append(slots, converter.SlotAvailabilityToResponse(item, loc))
	}

	return &dto.TimeSlotListResponse{
		Slots: slots,
		Total: len(slots),
	}, nil
}

func (u *timeSlotUsecase) CreateSlot(ctx context.Context, req *dto.CreateSlotRequest) (*dto.TimeSlotResponse, error) {
	slot, err := u.slotFromRequest(req)
	if err != nil {
		return nil, err
	}

	if err := u.slotRepo.Create(u.db.WithContext(ctx), slot); err != nil {
		if isDuplicateKeyError(err, "time_slots") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlotExists
		}
		u.log.Warnf("Failed to create slot: %+v", err)
		return nil, err
	}

	u.log.Infof("Slot %s created at %s", slot.ID, slot.StartsAt.Format(time.RFC3339))
	return converter.TimeSlotToResponse(slot, u.ledger.Location()), nil
}

// BulkCreateSlots seeds slots, skipping windows that already exist
func (u *timeSlotUsecase) BulkCreateSlots(ctx context.Context, req *dto.BulkCreateSlotsRequest) (*dto.BulkCreateSlotsResponse, error) {
	slots := make([]entity.TimeSlot, 0, len(req.Slots))
	for i := range req.Slots {
		slot, err := u.slotFromRequest(&req.Slots[i])
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}

	created, err := u.ledger.BulkCreate(ctx, slots)
	if err != nil {
		return nil, err
	}

	return &dto.BulkCreateSlotsResponse{
		Requested: len(slots),
		Created:   created,
	}, nil
}

func (u *timeSlotUsecase) SetAvailability(ctx context.Context, slotID uuid.UUID, available bool) (*dto.TimeSlotResponse, error) {
	slot, err := u.ledger.SetAvailability(ctx, slotID, available)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Slot %s availability set to %t", slotID, available)
	return converter.TimeSlotToResponse(slot, u.ledger.Location()), nil
}

func (u *timeSlotUsecase) UpsertBusinessHours(ctx context.Context, req *dto.BusinessHoursRequest) (*dto.BusinessHoursResponse, error) {
	hours := &entity.BusinessHours{
		Weekday:      *req.Weekday,
		OpenTime:     req.OpenTime,
		CloseTime:    req.CloseTime,
		BreakStart:   req.BreakStart,
		BreakEnd:     req.BreakEnd,
		SlotMinutes:  req.SlotMinutes,
		SlotCapacity: req.SlotCapacity,
		Active:       req.Active,
	}

	// Lay out a sample day to reject templates that cannot produce slots
	if _, err := hours.SlotsFor(time.Now(), u.ledger.Location()); err != nil {
		return nil, ErrInvalidBusinessHours
	}

	db := u.db.WithContext(ctx)
	if err := u.hoursRepo.Upsert(db, hours); err != nil {
		u.log.Warnf("Failed to upsert business hours for weekday %d: %+v", hours.Weekday, err)
		return nil, err
	}

	stored, err := u.hoursRepo.FindByWeekday(db, hours.Weekday)
	if err != nil {
		u.log.Warnf("Failed to find business hours for weekday %d: %+v", hours.Weekday, err)
		return nil, err
	}
	if stored == nil {
		stored = hours
	}

	u.log.Infof("Business hours for weekday %d updated", hours.Weekday)
	return converter.BusinessHoursToResponse(stored), nil
}

func (u *timeSlotUsecase) ListBusinessHours(ctx context.Context) (*dto.BusinessHoursListResponse, error) {
	rows, err := u.hoursRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find business hours: %+v", err)
		return nil, err
	}

	return &dto.BusinessHoursListResponse{
		BusinessHours: converter.BusinessHoursToResponses(rows),
		Total:         len(rows),
	}, nil
}

// MaterializeRange lays out slots for every day of the inclusive range
func (u *timeSlotUsecase) MaterializeRange(ctx context.Context, req *dto.MaterializeRequest) (*dto.MaterializeResponse, error) {
	from, to, err := u.parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	response := &dto.MaterializeResponse{}
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		created, err := u.ledger.Materialize(ctx, nil, day)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidBusinessHours) {
				return nil, ErrInvalidBusinessHours
			}
			return nil, err
		}
		response.Days++
		response.Created += created
	}

	return response, nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// parseRange turns an inclusive YYYY-MM-DD range into [from, to) in the workshop zone
func (u *timeSlotUsecase) parseRange(fromDate, toDate string) (time.Time, time.Time, error) {
	loc := u.ledger.Location()

	from, err := time.ParseInLocation("2006-01-02", fromDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	to, err := time.ParseInLocation("2006-01-02", toDate, loc)
	if err != nil || to.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}

	to = to.AddDate(0, 0, 1)
	if to.After(from.AddDate(0, 0, maxRangeDays)) {
		return time.Time{}, time.Time{}, ErrDateRangeTooLarge
	}

	return from, to, nil
}

func (u *timeSlotUsecase) slotFromRequest(req *dto.CreateSlotRequest) (*entity.TimeSlot, error) {
	startsAt, err := parseSchedule(req.Date, req.StartTime, u.ledger.Location())
	if err != nil {
		return nil, err
	}
	endsAt, err := parseSchedule(req.Date, req.EndTime, u.ledger.Location())
	if err != nil {
		return nil, err
	}
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidSlotWindow
	}

	return &entity.TimeSlot{
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Capacity:    req.Capacity,
		IsAvailable: true,
	}, nil
}
