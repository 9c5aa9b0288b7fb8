package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

const bookingColumns = `
	bk.id, bk.booking_reference, bk.user_id, bk.schedule_id, bk.seat_numbers,
	bk.total_amount, bk.booking_status, bk.cancelled_at, bk.created_at, bk.updated_at`

const bookingDetailColumns = bookingColumns + `,
	to_char(s.departure_time, 'HH24:MI') AS departure_time, s.schedule_date, s.price,
	s.route_id, r.source, r.destination, b.bus_number, b.bus_name,
	u.name AS user_name, u.email, u.phone`

const bookingDetailFrom = `
	FROM bookings bk
	JOIN schedules s ON s.id = bk.schedule_id
	JOIN routes r ON r.id = s.route_id
	JOIN buses b ON b.id = s.bus_id
	JOIN users u ON u.id = bk.user_id`

// BookingRepository handles booking rows. Mutations take a Querier so they
// run in the same transaction as the seat ledger update.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateTx inserts a confirmed booking
func (r *BookingRepository) CreateTx(ctx context.Context, q Querier, b *models.Booking) error {
	query := `
		INSERT INTO bookings (booking_reference, user_id, schedule_id, seat_numbers, total_amount, booking_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := q.QueryRowxContext(ctx, query,
		b.BookingReference, b.UserID, b.ScheduleID, b.SeatNumbers, b.TotalAmount, b.BookingStatus,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", Translate(err))
	}
	return nil
}

// GetForUpdateTx loads a booking and locks its row for the rest of the transaction
func (r *BookingRepository) GetForUpdateTx(ctx context.Context, q Querier, id int64) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings bk WHERE bk.id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &b, query, id); err != nil {
		return nil, Translate(err)
	}
	return &b, nil
}

// UpdateTx persists the seat list, amount and status of a booking
func (r *BookingRepository) UpdateTx(ctx context.Context, q Querier, b *models.Booking) error {
	query := `
		UPDATE bookings SET
			seat_numbers = $1, total_amount = $2, booking_status = $3,
			cancelled_at = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := q.QueryRowxContext(ctx, query,
		b.SeatNumbers, b.TotalAmount, b.BookingStatus, b.CancelledAt, b.ID,
	).Scan(&b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", Translate(err))
	}
	return nil
}

// GetDetail retrieves a booking with its schedule, route, bus and owner
func (r *BookingRepository) GetDetail(ctx context.Context, id int64) (*models.BookingDetail, error) {
	var d models.BookingDetail
	query := `SELECT ` + bookingDetailColumns + bookingDetailFrom + ` WHERE bk.id = $1`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		return nil, Translate(err)
	}
	return &d, nil
}

// List returns bookings matching the filter, newest first
func (r *BookingRepository) List(ctx context.Context, f models.BookingFilter) ([]models.BookingDetail, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if f.UserID != nil {
		where = append(where, "bk.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Status != "" {
		where = append(where, "bk.booking_status = ?")
		args = append(args, f.Status)
	}
	if len(f.Dates) > 0 {
		dates := make([]string, len(f.Dates))
		for i, d := range f.Dates {
			dates[i] = d.String()
		}
		where = append(where, "s.schedule_date IN (?)")
		args = append(args, dates)
	}
	if f.RouteID > 0 {
		where = append(where, "s.route_id = ?")
		args = append(args, f.RouteID)
	}
	if f.Search != "" {
		where = append(where, "(u.name ILIKE ? OR u.email ILIKE ? OR bk.booking_reference ILIKE ?)")
		pattern := "%" + escapeLike(f.Search) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + bookingDetailColumns + bookingDetailFrom +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY bk.created_at DESC, bk.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build booking query: %w", err)
	}
	query = r.db.Rebind(query)

	bookings := []models.BookingDetail{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// BookingTotals are aggregate figures over confirmed and cancelled bookings
type BookingTotals struct {
	Confirmed int     `db:"confirmed"`
	Cancelled int     `db:"cancelled"`
	SeatsSold int     `db:"seats_sold"`
	Revenue   float64 `db:"revenue"`
}

// Totals aggregates all bookings
func (r *BookingRepository) Totals(ctx context.Context) (*BookingTotals, error) {
	var t BookingTotals
	err := r.db.GetContext(ctx, &t, `
		SELECT
			COUNT(*) FILTER (WHERE booking_status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE booking_status = 'cancelled') AS cancelled,
			COALESCE(SUM(cardinality(seat_numbers)) FILTER (WHERE booking_status = 'confirmed'), 0) AS seats_sold,
			COALESCE(SUM(total_amount) FILTER (WHERE booking_status = 'confirmed'), 0) AS revenue
		FROM bookings`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings: %w", err)
	}
	return &t, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
