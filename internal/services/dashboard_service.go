package services

import (
	"context"
	"time"

	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// Counter counts rows of a catalog table
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// UpcomingCounter counts active schedules from a day on
type UpcomingCounter interface {
	CountUpcoming(ctx context.Context, from models.Date) (int, error)
}

// BookingTotaler aggregates booking figures
type BookingTotaler interface {
	Totals(ctx context.Context) (*database.BookingTotals, error)
}

// DashboardService assembles the staff dashboard
type DashboardService struct {
	buses     Counter
	routes    Counter
	schedules UpcomingCounter
	bookings  BookingTotaler
	now       func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(buses, routes Counter, schedules UpcomingCounter, bookings BookingTotaler) *DashboardService {
	return &DashboardService{
		buses:     buses,
		routes:    routes,
		schedules: schedules,
		bookings:  bookings,
		now:       time.Now,
	}
}

// Stats runs the dashboard queries concurrently
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	var totals *database.BookingTotals

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Buses, err = s.buses.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Routes, err = s.routes.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.UpcomingSchedules, err = s.schedules.CountUpcoming(ctx, models.NewDate(s.now()))
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.bookings.Totals(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.ConfirmedBookings = totals.Confirmed
	stats.CancelledBookings = totals.Cancelled
	stats.SeatsSold = totals.SeatsSold
	stats.Revenue = totals.Revenue
	return &stats, nil
}
