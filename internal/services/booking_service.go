package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/utils"
)

const (
	// maxReferenceAttempts bounds retries when a generated booking reference collides
	maxReferenceAttempts = 3

	amountTolerance = 0.01

	referenceConstraint = "bookings_booking_reference_key"
)

// BookingService creates and cancels bookings against the seat ledger.
// Every booking change and its ledger change commit in one transaction.
type BookingService struct {
	tx       Transactor
	ledger   SeatLedgerStore
	bookings BookingStore
	notifier ScheduleNotifier
	audit    Auditor
	logger   logrus.FieldLogger

	now    func() time.Time
	newRef func(time.Time) (string, error)
}

// NewBookingService creates a new BookingService. notifier and audit may be nil.
func NewBookingService(
	tx Transactor,
	ledger SeatLedgerStore,
	bookings BookingStore,
	notifier ScheduleNotifier,
	audit Auditor,
	logger logrus.FieldLogger,
) *BookingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if audit == nil {
		audit = noopAuditor{}
	}
	return &BookingService{
		tx:       tx,
		ledger:   ledger,
		bookings: bookings,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
		newRef:   utils.GenerateBookingReference,
	}
}

// CreateBooking claims the requested seats and records a confirmed booking.
// The amount is computed from the schedule price; a client-sent total must match it.
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	seats := req.SeatNumbers.Set()
	if len(seats) == 0 {
		return nil, NewValidationError("seat_numbers", "at least one seat is required")
	}

	var booking *models.Booking
	var err error
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		booking, err = s.createOnce(ctx, actor, req.ScheduleID, seats, req.TotalAmount)
		if err == nil || database.ConstraintOf(err) != referenceConstraint {
			break
		}
		s.logger.WithField("attempt", attempt).Warn("Booking reference collision, retrying")
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"reference":   booking.BookingReference,
		"schedule_id": booking.ScheduleID,
		"user_id":     booking.UserID,
		"seats":       []int(booking.SeatNumbers),
	}).Info("Booking confirmed")

	return booking, nil
}

func (s *BookingService) createOnce(ctx context.Context, actor Actor, scheduleID int64, seats models.SeatSet, expected *float64) (*models.Booking, error) {
	var booking *models.Booking
	var after afterCommit

	err := s.tx.WithinTx(ctx, func(ctx context.Context, q database.Querier) error {
		state, schedule, err := s.ledger.GetSeatStateForUpdate(ctx, q, scheduleID)
		if err != nil {
			return err
		}
		if s.closed(schedule) {
			return ErrScheduleClosed
		}

		if err := state.Claim(seats); err != nil {
			return err
		}

		amount := roundAmount(schedule.Price * float64(len(seats)))
		if expected != nil && math.Abs(*expected-amount) > amountTolerance {
			return NewValidationError("total_amount", "total_amount mismatch: expected %.2f", amount)
		}

		if err := s.ledger.SaveSeatState(ctx, q, state); err != nil {
			return err
		}

		ref, err := s.newRef(s.now())
		if err != nil {
			return fmt.Errorf("failed to generate booking reference: %w", err)
		}

		booking = &models.Booking{
			BookingReference: ref,
			UserID:           actor.UserID,
			ScheduleID:       scheduleID,
			SeatNumbers:      seats,
			TotalAmount:      amount,
			BookingStatus:    models.BookingStatusConfirmed,
		}
		if err := s.bookings.CreateTx(ctx, q, booking); err != nil {
			return err
		}

		after.add(func(ctx context.Context) {
			s.notifier.ScheduleChanged(ctx, scheduleID)
			s.record(ctx, EventFor(actor, AuditBookingCreated, "booking", booking.ID, map[string]interface{}{
				"reference":   booking.BookingReference,
				"schedule_id": scheduleID,
				"seats":       []int(seats),
				"amount":      amount,
			}))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	after.run(ctx)
	return booking, nil
}

// CancelBooking cancels a whole booking, or only some of its seats. A subset
// covering every seat of the booking is a full cancellation.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, bookingID int64, seatsToCancel models.SeatSet) (*models.CancelResult, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	var result *models.CancelResult
	var after afterCommit

	err := s.tx.WithinTx(ctx, func(ctx context.Context, q database.Querier) error {
		booking, err := s.bookings.GetForUpdateTx(ctx, q, bookingID)
		if err != nil {
			return err
		}
		if booking.IsCancelled() {
			return ErrBookingAlreadyCancelled
		}

		subset := models.NewSeatSet(seatsToCancel...)
		if extra := subset.Minus(booking.SeatNumbers); len(extra) > 0 {
			return NewValidationError("seats_to_cancel", "seats %v are not part of this booking", []int(extra))
		}
		partial := len(subset) > 0 && len(subset) < len(booking.SeatNumbers)
		if !partial {
			subset = booking.SeatNumbers
		}

		state, _, err := s.ledger.GetSeatStateForUpdate(ctx, q, booking.ScheduleID)
		if err != nil {
			return err
		}
		released := state.Release(subset)
		if err := s.ledger.SaveSeatState(ctx, q, state); err != nil {
			return err
		}

		if partial {
			perSeat := booking.TotalAmount / float64(len(booking.SeatNumbers))
			booking.SeatNumbers = booking.SeatNumbers.Minus(subset)
			booking.TotalAmount = roundAmount(perSeat * float64(len(booking.SeatNumbers)))
		} else {
			now := s.now()
			booking.BookingStatus = models.BookingStatusCancelled
			booking.CancelledAt = &now
		}
		if err := s.bookings.UpdateTx(ctx, q, booking); err != nil {
			return err
		}

		result = &models.CancelResult{Booking: booking, ReleasedSeats: released, Partial: partial}

		action := AuditBookingCancelled
		if partial {
			action = AuditBookingReduced
		}
		after.add(func(ctx context.Context) {
			s.notifier.ScheduleChanged(ctx, booking.ScheduleID)
			s.record(ctx, EventFor(actor, action, "booking", booking.ID, map[string]interface{}{
				"reference":   booking.BookingReference,
				"schedule_id": booking.ScheduleID,
				"released":    []int(released),
			}))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	after.run(ctx)

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"released":   []int(result.ReleasedSeats),
		"partial":    result.Partial,
		"staff_id":   actor.UserID,
	}).Info("Booking cancelled")

	return result, nil
}

// ListBookings returns the viewer's own bookings, or every booking for staff.
func (s *BookingService) ListBookings(ctx context.Context, actor Actor, filter models.BookingFilter) ([]models.BookingDetail, error) {
	if !actor.IsStaff() {
		owner := actor.UserID
		filter.UserID = &owner
		filter.Search = ""
	}
	return s.bookings.List(ctx, filter)
}

// GetBooking returns one booking visible to the viewer
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID int64) (*models.BookingDetail, error) {
	detail, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && detail.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return detail, nil
}

func (s *BookingService) closed(schedule *models.Schedule) bool {
	if schedule.Status != models.ScheduleStatusActive {
		return true
	}
	return schedule.ScheduleDate.Before(models.NewDate(s.now()).Time)
}

func (s *BookingService) record(ctx context.Context, event AuditEvent) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Warn("Audit event dropped")
	}
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
