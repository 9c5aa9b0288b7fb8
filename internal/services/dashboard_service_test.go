package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countFunc func(ctx context.Context) (int, error)

func (f countFunc) Count(ctx context.Context) (int, error) { return f(ctx) }

type upcomingFunc func(ctx context.Context, from models.Date) (int, error)

func (f upcomingFunc) CountUpcoming(ctx context.Context, from models.Date) (int, error) {
	return f(ctx, from)
}

type totalsFunc func(ctx context.Context) (*database.BookingTotals, error)

func (f totalsFunc) Totals(ctx context.Context) (*database.BookingTotals, error) { return f(ctx) }

func TestDashboardStats(t *testing.T) {
	var from models.Date
	svc := NewDashboardService(
		countFunc(func(context.Context) (int, error) { return 4, nil }),
		countFunc(func(context.Context) (int, error) { return 6, nil }),
		upcomingFunc(func(_ context.Context, d models.Date) (int, error) { from = d; return 12, nil }),
		totalsFunc(func(context.Context) (*database.BookingTotals, error) {
			return &database.BookingTotals{Confirmed: 9, Cancelled: 2, SeatsSold: 20, Revenue: 30000}, nil
		}),
	)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.DashboardStats{
		Buses:             4,
		Routes:            6,
		UpcomingSchedules: 12,
		ConfirmedBookings: 9,
		CancelledBookings: 2,
		SeatsSold:         20,
		Revenue:           30000,
	}, stats)
	assert.Equal(t, "2026-10-19", from.String())
}

func TestDashboardStats_PropagatesError(t *testing.T) {
	boom := errors.New("db down")
	svc := NewDashboardService(
		countFunc(func(context.Context) (int, error) { return 0, boom }),
		countFunc(func(context.Context) (int, error) { return 1, nil }),
		upcomingFunc(func(context.Context, models.Date) (int, error) { return 1, nil }),
		totalsFunc(func(context.Context) (*database.BookingTotals, error) { return &database.BookingTotals{}, nil }),
	)

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, boom)
}
