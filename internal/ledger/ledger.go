// Package ledger holds the seat accounting rules of a schedule. Callers load
// a State under the schedule's row lock, apply one operation and persist the
// result in the same transaction; nothing here touches the database.
package ledger

import (
	"errors"
	"fmt"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

var (
	// ErrCapacityExceeded means fewer seats are available than were requested
	ErrCapacityExceeded = errors.New("not enough seats available")

	// ErrNoSeats means an operation was given an empty seat selection
	ErrNoSeats = errors.New("no seats selected")

	// ErrInconsistent means a persisted ledger violates its own invariants
	ErrInconsistent = errors.New("seat ledger is inconsistent")
)

// SeatConflictError lists requested seats that are already booked or reserved
type SeatConflictError struct {
	Seats models.SeatSet
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already taken: %v", []int(e.Seats))
}

// UnknownSeatError lists seats that do not exist on the bus
type UnknownSeatError struct {
	Seats models.SeatSet
}

func (e *UnknownSeatError) Error() string {
	return fmt.Sprintf("seats do not exist on this bus: %v", []int(e.Seats))
}

// State is the seat ledger of one schedule
type State struct {
	ScheduleID int64
	Total      int
	Booked     models.SeatSet
	Reserved   models.SeatSet
	Available  int

	// Valid holds the seat numbers that exist on the bus. Empty means 1..Total.
	Valid models.SeatSet
}

// Recompute derives Available from the seat sets
func (s *State) Recompute() {
	s.Available = s.Total - len(s.Booked) - len(s.Reserved)
}

func (s *State) exists(seat int) bool {
	if len(s.Valid) == 0 {
		return seat >= 1 && seat <= s.Total
	}
	return s.Valid.Contains(seat)
}

func (s *State) unknown(seats models.SeatSet) models.SeatSet {
	out := models.SeatSet{}
	for _, seat := range seats {
		if !s.exists(seat) {
			out = append(out, seat)
		}
	}
	return out
}

// Check verifies the ledger invariants: booked and reserved are disjoint and
// availability matches the seat sets.
func (s *State) Check() error {
	if overlap := s.Booked.Intersect(s.Reserved); len(overlap) > 0 {
		return fmt.Errorf("%w: seats %v are both booked and reserved", ErrInconsistent, []int(overlap))
	}
	if want := s.Total - len(s.Booked) - len(s.Reserved); s.Available != want {
		return fmt.Errorf("%w: available is %d, expected %d", ErrInconsistent, s.Available, want)
	}
	if s.Available < 0 {
		return fmt.Errorf("%w: available is negative", ErrInconsistent)
	}
	return nil
}

// Claim books the requested seats if none is taken and capacity allows.
// On error the state is left untouched.
func (s *State) Claim(requested models.SeatSet) error {
	requested = models.NewSeatSet(requested...)
	if len(requested) == 0 {
		return ErrNoSeats
	}
	if bad := s.unknown(requested); len(bad) > 0 {
		return &UnknownSeatError{Seats: bad}
	}

	taken := s.Booked.Union(s.Reserved)
	if conflict := requested.Intersect(taken); len(conflict) > 0 {
		return &SeatConflictError{Seats: conflict}
	}
	if len(requested) > s.Available {
		return ErrCapacityExceeded
	}

	s.Booked = s.Booked.Union(requested)
	s.Recompute()
	return nil
}

// Release frees booked seats and returns the ones actually released. Seats
// that are not currently booked are ignored so capacity is never credited twice.
func (s *State) Release(seats models.SeatSet) models.SeatSet {
	released := models.NewSeatSet(seats...).Intersect(s.Booked)
	s.Booked = s.Booked.Minus(released)
	s.Recompute()
	return released
}

// SetReserved replaces the reserved set. Booked seats always win: any
// requested seat already booked is left out and returned in rejected.
func (s *State) SetReserved(want models.SeatSet) (applied, rejected models.SeatSet, err error) {
	want = models.NewSeatSet(want...)
	if bad := s.unknown(want); len(bad) > 0 {
		return nil, nil, &UnknownSeatError{Seats: bad}
	}

	rejected = want.Intersect(s.Booked)
	applied = want.Minus(s.Booked)

	s.Reserved = applied
	s.Recompute()
	return applied, rejected, nil
}
