package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/ledger"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	traveler  = Actor{UserID: 5, Email: "asha@example.com", Role: models.RoleUser}
	traveler2 = Actor{UserID: 6, Email: "ben@example.com", Role: models.RoleUser}
	staff     = Actor{UserID: 1, Email: "ops@example.com", Role: models.RoleStaff}
)

type bookingFixture struct {
	store    *memStore
	notifier *recordingNotifier
	audit    *recordingAuditor
	bookings *BookingService
	reserve  *ReservationService
	today    time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	today := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.addSchedule(7, 40, 1500, models.NewDate(today.AddDate(0, 0, 3)))

	notifier := &recordingNotifier{}
	audit := &recordingAuditor{}
	tx := memTransactor{store: store}

	svc := NewBookingService(tx, memLedger{store}, memBookings{store}, notifier, audit, quietLogger())
	svc.now = func() time.Time { return today }

	var seq int
	var seqMu sync.Mutex
	svc.newRef = func(now time.Time) (string, error) {
		seqMu.Lock()
		defer seqMu.Unlock()
		seq++
		return fmt.Sprintf("BK-%s-%06d", now.Format("20060102"), seq), nil
	}

	return &bookingFixture{
		store:    store,
		notifier: notifier,
		audit:    audit,
		bookings: svc,
		reserve:  NewReservationService(tx, memLedger{store}, notifier, audit, quietLogger()),
		today:    today,
	}
}

func (f *bookingFixture) book(t *testing.T, actor Actor, seats ...int) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), actor, &models.CreateBookingRequest{
		ScheduleID:  7,
		SeatNumbers: models.SeatList(seats),
	})
	require.NoError(t, err)
	return b
}

func assertLedgerInvariant(t *testing.T, s models.Schedule) {
	t.Helper()
	assert.Empty(t, s.BookedSeats.Intersect(s.ReservedSeats), "booked and reserved overlap")
	assert.Equal(t, s.TotalSeats-len(s.BookedSeats)-len(s.ReservedSeats), s.AvailableSeats)
}

func TestCreateBooking_ConflictOnOverlappingSeat(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first := f.book(t, traveler, 3, 4)
	assert.Equal(t, models.SeatSet{3, 4}, first.SeatNumbers)
	assert.Equal(t, 3000.0, first.TotalAmount)
	assert.Equal(t, models.BookingStatusConfirmed, first.BookingStatus)
	assert.Equal(t, "BK-20261019-000001", first.BookingReference)

	_, err := f.bookings.CreateBooking(ctx, traveler2, &models.CreateBookingRequest{
		ScheduleID:  7,
		SeatNumbers: models.SeatList{4, 5},
	})

	var conflict *ledger.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.SeatSet{4}, conflict.Seats)

	s := f.store.schedule(7)
	assert.Equal(t, models.SeatSet{3, 4}, s.BookedSeats)
	assert.Equal(t, 38, s.AvailableSeats)
	assertLedgerInvariant(t, s)

	assert.Equal(t, 1, f.notifier.count(), "only the committed booking notifies")
	assert.Equal(t, []string{AuditBookingCreated}, f.audit.actions())
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	t.Run("no seats", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{ScheduleID: 7})
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("total mismatch leaves ledger untouched", func(t *testing.T) {
		wrong := 100.0
		_, err := f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{
			ScheduleID:  7,
			SeatNumbers: models.SeatList{1, 2},
			TotalAmount: &wrong,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "total_amount", vErr.Field)
		assert.Empty(t, f.store.schedule(7).BookedSeats)
	})

	t.Run("matching total accepted", func(t *testing.T) {
		right := 3000.004
		b, err := f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{
			ScheduleID:  7,
			SeatNumbers: models.SeatList{1, 2},
			TotalAmount: &right,
		})
		require.NoError(t, err)
		assert.Equal(t, 3000.0, b.TotalAmount)
	})

	t.Run("unknown seat", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{
			ScheduleID:  7,
			SeatNumbers: models.SeatList{41},
		})
		var unknown *ledger.UnknownSeatError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, models.SeatSet{41}, unknown.Seats)
	})

	t.Run("missing schedule", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{
			ScheduleID:  99,
			SeatNumbers: models.SeatList{1},
		})
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestCreateBooking_FillsScheduleAroundReservation(t *testing.T) {
	f := newBookingFixture(t)
	f.store.addSchedule(8, 3, 500, models.NewDate(f.today))
	ctx := context.Background()

	_, err := f.reserve.SetReservation(ctx, staff, 8, models.SeatSet{1})
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{
		ScheduleID:  8,
		SeatNumbers: models.SeatList{2, 3},
	})
	require.NoError(t, err)

	s := f.store.schedule(8)
	assert.Equal(t, 0, s.AvailableSeats)
	assertLedgerInvariant(t, s)
}

func TestCreateBooking_ClosedSchedule(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.store.addSchedule(9, 40, 1500, models.NewDate(f.today.AddDate(0, 0, -1)))
	_, err := f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{ScheduleID: 9, SeatNumbers: models.SeatList{1}})
	assert.ErrorIs(t, err, ErrScheduleClosed)

	f.store.addSchedule(10, 40, 1500, models.NewDate(f.today))
	f.store.schedules[10].Status = models.ScheduleStatusCancelled
	_, err = f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{ScheduleID: 10, SeatNumbers: models.SeatList{1}})
	assert.ErrorIs(t, err, ErrScheduleClosed)

	f.store.addSchedule(11, 40, 1500, models.NewDate(f.today))
	_, err = f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{ScheduleID: 11, SeatNumbers: models.SeatList{1}})
	assert.NoError(t, err, "departures later today are still open")
}

func TestCreateBooking_RetriesReferenceCollision(t *testing.T) {
	f := newBookingFixture(t)
	f.store.refCollisions = 1

	b := f.book(t, traveler, 12)
	assert.Equal(t, "BK-20261019-000002", b.BookingReference)

	s := f.store.schedule(7)
	assert.Equal(t, models.SeatSet{12}, s.BookedSeats, "the failed attempt rolled back")
	assertLedgerInvariant(t, s)
}

func TestCreateBooking_CollisionsExhausted(t *testing.T) {
	f := newBookingFixture(t)
	f.store.refCollisions = maxReferenceAttempts

	_, err := f.bookings.CreateBooking(context.Background(), traveler, &models.CreateBookingRequest{
		ScheduleID:  7,
		SeatNumbers: models.SeatList{12},
	})
	assert.ErrorIs(t, err, database.ErrConflict)
	assert.Empty(t, f.store.schedule(7).BookedSeats)
}

func TestCancelBooking_Full(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.book(t, traveler, 3, 4)

	res, err := f.bookings.CancelBooking(ctx, staff, b.ID, nil)
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Equal(t, models.SeatSet{3, 4}, res.ReleasedSeats)
	assert.Equal(t, models.BookingStatusCancelled, res.Booking.BookingStatus)
	assert.NotNil(t, res.Booking.CancelledAt)

	s := f.store.schedule(7)
	assert.Empty(t, s.BookedSeats)
	assert.Equal(t, 40, s.AvailableSeats)

	stored := f.store.booking(b.ID)
	assert.True(t, stored.IsCancelled())
}

func TestCancelBooking_AlreadyCancelledDoesNotDoubleRelease(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.book(t, traveler, 3, 4)
	f.book(t, traveler2, 5)

	_, err := f.bookings.CancelBooking(ctx, staff, b.ID, nil)
	require.NoError(t, err)
	before := f.store.schedule(7)

	_, err = f.bookings.CancelBooking(ctx, staff, b.ID, nil)
	assert.ErrorIs(t, err, ErrBookingAlreadyCancelled)

	after := f.store.schedule(7)
	assert.Equal(t, before.AvailableSeats, after.AvailableSeats)
	assert.Equal(t, models.SeatSet{5}, after.BookedSeats)
	assertLedgerInvariant(t, after)
}

func TestCancelBooking_Partial(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.book(t, traveler, 3, 4, 5)
	before := f.store.schedule(7)

	res, err := f.bookings.CancelBooking(ctx, staff, b.ID, models.SeatSet{4})
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Equal(t, models.SeatSet{4}, res.ReleasedSeats)

	stored := f.store.booking(b.ID)
	assert.Equal(t, models.SeatSet{3, 5}, stored.SeatNumbers)
	assert.Equal(t, models.BookingStatusConfirmed, stored.BookingStatus)
	assert.Equal(t, 3000.0, stored.TotalAmount)

	s := f.store.schedule(7)
	assert.Equal(t, models.SeatSet{3, 5}, s.BookedSeats)
	assert.Equal(t, before.AvailableSeats+1, s.AvailableSeats)
	assertLedgerInvariant(t, s)

	assert.Contains(t, f.audit.actions(), AuditBookingReduced)
}

func TestCancelBooking_SubsetOfAllSeatsIsFullCancel(t *testing.T) {
	f := newBookingFixture(t)
	b := f.book(t, traveler, 3, 4)

	res, err := f.bookings.CancelBooking(context.Background(), staff, b.ID, models.SeatSet{4, 3})
	require.NoError(t, err)
	assert.False(t, res.Partial)
	bk := f.store.booking(b.ID)
	assert.True(t, bk.IsCancelled())
}

func TestCancelBooking_Rejections(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.book(t, traveler, 3, 4)

	t.Run("travelers cannot cancel", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, traveler, b.ID, nil)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("seats outside the booking", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, staff, b.ID, models.SeatSet{4, 9})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, models.SeatSet{3, 4}, f.store.schedule(7).BookedSeats)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, staff, 9999, nil)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestClaimThenReleaseRestoresLedger(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.reserve.SetReservation(context.Background(), staff, 7, models.SeatSet{20})
	require.NoError(t, err)
	before := f.store.schedule(7)

	b := f.book(t, traveler, 1, 2, 3)
	_, err = f.bookings.CancelBooking(context.Background(), staff, b.ID, nil)
	require.NoError(t, err)

	after := f.store.schedule(7)
	assert.Equal(t, before.BookedSeats, after.BookedSeats)
	assert.Equal(t, before.ReservedSeats, after.ReservedSeats)
	assert.Equal(t, before.AvailableSeats, after.AvailableSeats)
}

func TestReservation_BlocksClaims(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	res, err := f.reserve.SetReservation(ctx, staff, 7, models.SeatSet{10, 11})
	require.NoError(t, err)
	assert.Equal(t, models.SeatSet{10, 11}, res.Applied)
	assert.Empty(t, res.Rejected)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 38, res.Schedule.AvailableSeats)
	assert.Equal(t, 38, f.store.schedule(7).AvailableSeats)

	_, err = f.bookings.CreateBooking(ctx, traveler, &models.CreateBookingRequest{
		ScheduleID:  7,
		SeatNumbers: models.SeatList{10},
	})
	var conflict *ledger.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.SeatSet{10}, conflict.Seats)
}

func TestReservation_BookedSeatsWin(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.book(t, traveler, 10)

	res, err := f.reserve.SetReservation(ctx, staff, 7, models.SeatSet{10, 11})
	require.NoError(t, err)
	assert.Equal(t, models.SeatSet{11}, res.Applied)
	assert.Equal(t, models.SeatSet{10}, res.Rejected)
	assert.Contains(t, res.Warning, "already booked")

	s := f.store.schedule(7)
	assert.Equal(t, models.SeatSet{10}, s.BookedSeats)
	assert.Equal(t, models.SeatSet{11}, s.ReservedSeats)
	assertLedgerInvariant(t, s)

	t.Run("empty list clears reservations", func(t *testing.T) {
		_, err := f.reserve.SetReservation(ctx, staff, 7, models.SeatSet{})
		require.NoError(t, err)
		assert.Empty(t, f.store.schedule(7).ReservedSeats)
		assert.Equal(t, 39, f.store.schedule(7).AvailableSeats)
	})

	t.Run("staff only", func(t *testing.T) {
		_, err := f.reserve.SetReservation(ctx, traveler, 7, models.SeatSet{1})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestConcurrentClaims_SameSeatOneWinner(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, conflicts int

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.bookings.CreateBooking(ctx, Actor{UserID: int64(100 + i), Role: models.RoleUser}, &models.CreateBookingRequest{
				ScheduleID:  7,
				SeatNumbers: models.SeatList{7, 8},
			})
			mu.Lock()
			defer mu.Unlock()
			var conflict *ledger.SeatConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)

	s := f.store.schedule(7)
	assert.Equal(t, models.SeatSet{7, 8}, s.BookedSeats)
	assertLedgerInvariant(t, s)
}

func TestConcurrentClaims_OverlappingSetsNeverDoubleBook(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var granted []models.SeatSet

	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seats := models.SeatList{i%40 + 1, (i+1)%40 + 1, (i+7)%40 + 1}
			b, err := f.bookings.CreateBooking(ctx, Actor{UserID: int64(200 + i), Role: models.RoleUser}, &models.CreateBookingRequest{
				ScheduleID:  7,
				SeatNumbers: seats,
			})
			if err != nil {
				return
			}
			mu.Lock()
			granted = append(granted, b.SeatNumbers)
			mu.Unlock()
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.reserve.SetReservation(ctx, staff, 7, models.SeatSet{30 + i})
		}(i)
	}
	wg.Wait()

	require.NotEmpty(t, granted)
	union := models.SeatSet{}
	total := 0
	for _, g := range granted {
		assert.Empty(t, union.Intersect(g), "seat granted twice")
		union = union.Union(g)
		total += len(g)
	}

	s := f.store.schedule(7)
	assert.Equal(t, total, len(s.BookedSeats))
	assert.True(t, union.Equal(s.BookedSeats))
	assertLedgerInvariant(t, s)
}

func TestListBookings_Visibility(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.book(t, traveler, 1)
	f.book(t, traveler2, 2)

	mine, err := f.bookings.ListBookings(ctx, traveler, models.BookingFilter{Search: "ben"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, traveler.UserID, mine[0].UserID)

	all, err := f.bookings.ListBookings(ctx, staff, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetBookingAndTicket(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.book(t, traveler, 3, 4)

	t.Run("owner", func(t *testing.T) {
		d, err := f.bookings.GetBooking(ctx, traveler, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.BookingReference, d.BookingReference)
	})

	t.Run("other traveler", func(t *testing.T) {
		_, err := f.bookings.GetBooking(ctx, traveler2, b.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("ticket pdf", func(t *testing.T) {
		pdf, name, err := f.bookings.Ticket(ctx, staff, b.ID)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
		assert.Equal(t, "ETICKET_"+b.BookingReference+".pdf", name)
	})

	t.Run("no ticket after cancellation", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, staff, b.ID, nil)
		require.NoError(t, err)
		_, _, err = f.bookings.Ticket(ctx, traveler, b.ID)
		assert.ErrorIs(t, err, ErrBookingAlreadyCancelled)
	})
}
