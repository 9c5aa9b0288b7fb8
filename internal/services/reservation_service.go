package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// ReservationService lets staff hold seats off sale without creating a booking
type ReservationService struct {
	tx       Transactor
	ledger   SeatLedgerStore
	notifier ScheduleNotifier
	audit    Auditor
	logger   logrus.FieldLogger
}

// NewReservationService creates a new ReservationService
func NewReservationService(tx Transactor, ledger SeatLedgerStore, notifier ScheduleNotifier, audit Auditor, logger logrus.FieldLogger) *ReservationService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if audit == nil {
		audit = noopAuditor{}
	}
	return &ReservationService{
		tx:       tx,
		ledger:   ledger,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

// SetReservation replaces the reserved seats of a schedule. Seats that are
// already booked stay booked and come back in Rejected.
func (s *ReservationService) SetReservation(ctx context.Context, actor Actor, scheduleID int64, seats models.SeatSet) (*models.ReservationResult, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	result := &models.ReservationResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q database.Querier) error {
		state, schedule, err := s.ledger.GetSeatStateForUpdate(ctx, q, scheduleID)
		if err != nil {
			return err
		}

		applied, rejected, err := state.SetReserved(seats)
		if err != nil {
			return err
		}
		if err := s.ledger.SaveSeatState(ctx, q, state); err != nil {
			return err
		}

		schedule.BookedSeats = state.Booked
		schedule.ReservedSeats = state.Reserved
		schedule.AvailableSeats = state.Available

		result.Schedule = schedule
		result.Applied = applied
		result.Rejected = rejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Rejected) > 0 {
		result.Warning = fmt.Sprintf("seats %v are already booked and were not reserved", []int(result.Rejected))
	}

	s.notifier.ScheduleChanged(ctx, scheduleID)
	if err := s.audit.Record(ctx, EventFor(actor, AuditSeatsReserved, "schedule", scheduleID, map[string]interface{}{
		"applied":  []int(result.Applied),
		"rejected": []int(result.Rejected),
	})); err != nil {
		s.logger.WithError(err).Warn("Audit event dropped")
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"reserved":    []int(result.Applied),
		"rejected":    []int(result.Rejected),
		"staff_id":    actor.UserID,
	}).Info("Seat reservation updated")

	return result, nil
}
