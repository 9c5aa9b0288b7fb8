package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// ScheduleStore persists schedules
type ScheduleStore interface {
	CreateTx(ctx context.Context, q database.Querier, s *models.Schedule) (bool, error)
	GetDetail(ctx context.Context, id int64) (*models.ScheduleDetail, error)
	ListUpcoming(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
	LockTx(ctx context.Context, q database.Querier, scheduleID int64) error
	CountConfirmedBookingsTx(ctx context.Context, q database.Querier, scheduleID int64) (int, error)
	DeleteTx(ctx context.Context, q database.Querier, scheduleID int64) error
	CompletePast(ctx context.Context, before models.Date) (int64, error)
}

// BusLookup reads a bus inside a transaction
type BusLookup interface {
	GetByIDTx(ctx context.Context, q database.Querier, id int64) (*models.Bus, error)
}

// RouteLookup reads a route
type RouteLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Route, error)
}

// SeatMapCache serves schedule seat maps, calling load on a miss
type SeatMapCache interface {
	GetSchedule(ctx context.Context, scheduleID int64, load func(ctx context.Context) (*models.ScheduleWithSeats, error)) (*models.ScheduleWithSeats, error)
}

// ScheduleService manages schedules: range expansion, listing, seat maps and deletion
type ScheduleService struct {
	tx        Transactor
	schedules ScheduleStore
	buses     BusLookup
	routes    RouteLookup
	cache     SeatMapCache
	notifier  ScheduleNotifier
	audit     Auditor
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewScheduleService creates a new ScheduleService. cache, notifier and audit may be nil.
func NewScheduleService(
	tx Transactor,
	schedules ScheduleStore,
	buses BusLookup,
	routes RouteLookup,
	cache SeatMapCache,
	notifier ScheduleNotifier,
	audit Auditor,
	logger logrus.FieldLogger,
) *ScheduleService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if audit == nil {
		audit = noopAuditor{}
	}
	return &ScheduleService{
		tx:        tx,
		schedules: schedules,
		buses:     buses,
		routes:    routes,
		cache:     cache,
		notifier:  notifier,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSchedules creates one schedule per day of the requested range. Days
// that already have this bus departing at the same time are skipped.
func (s *ScheduleService) CreateSchedules(ctx context.Context, actor Actor, req *models.CreateScheduleRequest) (*models.CreateSchedulesResult, error) {
	dates, err := req.Dates()
	if err != nil {
		return nil, &ValidationError{Field: "end_date", Message: err.Error()}
	}

	if _, err := s.routes.GetByID(ctx, req.RouteID); err != nil {
		if database.IsNotFound(err) {
			return nil, NewValidationError("route_id", "route %d does not exist", req.RouteID)
		}
		return nil, err
	}

	result := &models.CreateSchedulesResult{
		Created: []models.Schedule{},
		Skipped: []models.Date{},
		Dates:   dates,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, q database.Querier) error {
		bus, err := s.buses.GetByIDTx(ctx, q, req.BusID)
		if err != nil {
			if database.IsNotFound(err) {
				return NewValidationError("bus_id", "bus %d does not exist", req.BusID)
			}
			return err
		}

		for _, day := range dates {
			schedule := models.Schedule{
				BusID:         bus.ID,
				RouteID:       req.RouteID,
				DepartureTime: req.DepartureTime,
				ScheduleDate:  day,
				Price:         req.Price,
				TotalSeats:    bus.TotalSeats,
			}
			created, err := s.schedules.CreateTx(ctx, q, &schedule)
			if err != nil {
				return err
			}
			if !created {
				result.Skipped = append(result.Skipped, day)
				continue
			}
			result.Created = append(result.Created, schedule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, EventFor(actor, AuditSchedulesCreated, "schedule", 0, map[string]interface{}{
		"bus_id":   req.BusID,
		"route_id": req.RouteID,
		"created":  len(result.Created),
		"skipped":  len(result.Skipped),
	})); err != nil {
		s.logger.WithError(err).Warn("Audit event dropped")
	}

	s.logger.WithFields(logrus.Fields{
		"bus_id":   req.BusID,
		"route_id": req.RouteID,
		"created":  len(result.Created),
		"skipped":  len(result.Skipped),
	}).Info("Schedules created")

	return result, nil
}

// ListUpcoming returns active schedules from today on
func (s *ScheduleService) ListUpcoming(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	filter.From = models.NewDate(s.now())
	return s.schedules.ListUpcoming(ctx, filter)
}

// GetWithSeatMap returns a schedule with its seat map. The map is an unlocked
// snapshot; conflicts are only detected when seats are claimed.
func (s *ScheduleService) GetWithSeatMap(ctx context.Context, scheduleID int64) (*models.ScheduleWithSeats, error) {
	load := func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		detail, err := s.schedules.GetDetail(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		return &models.ScheduleWithSeats{ScheduleDetail: *detail, SeatMap: detail.BuildSeatMap()}, nil
	}

	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.GetSchedule(ctx, scheduleID, load)
}

// DeleteSchedule removes a schedule that has no confirmed bookings
func (s *ScheduleService) DeleteSchedule(ctx context.Context, actor Actor, scheduleID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q database.Querier) error {
		if err := s.schedules.LockTx(ctx, q, scheduleID); err != nil {
			return err
		}
		n, err := s.schedules.CountConfirmedBookingsTx(ctx, q, scheduleID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrScheduleHasBookings
		}
		return s.schedules.DeleteTx(ctx, q, scheduleID)
	})
	if err != nil {
		return err
	}

	s.notifier.ScheduleChanged(ctx, scheduleID)
	if err := s.audit.Record(ctx, EventFor(actor, AuditScheduleDeleted, "schedule", scheduleID, nil)); err != nil {
		s.logger.WithError(err).Warn("Audit event dropped")
	}
	s.logger.WithField("schedule_id", scheduleID).Info("Schedule deleted")
	return nil
}

// CompletePastSchedules marks active schedules dated before today as completed
func (s *ScheduleService) CompletePastSchedules(ctx context.Context) (int64, error) {
	return s.schedules.CompletePast(ctx, models.NewDate(s.now()))
}
