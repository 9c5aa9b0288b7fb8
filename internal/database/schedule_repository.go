package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/bus-booking-backend/internal/ledger"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// departure_time is a TIME column; it is always read back as HH:MM text.
const scheduleColumns = `
	s.id, s.bus_id, s.route_id, to_char(s.departure_time, 'HH24:MI') AS departure_time,
	s.schedule_date, s.price, s.total_seats, s.available_seats,
	s.booked_seats, s.reserved_seats, s.status, s.created_at, s.updated_at`

const scheduleDetailColumns = scheduleColumns + `,
	b.bus_number, b.bus_name, b.bus_type, b.seat_layout,
	r.source, r.destination, r.distance, r.duration`

const scheduleDetailFrom = `
	FROM schedules s
	JOIN buses b ON b.id = s.bus_id
	JOIN routes r ON r.id = s.route_id`

// ScheduleRepository handles schedules and the seat ledger stored on them
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// CreateTx inserts one schedule with an empty ledger. It returns false when a
// schedule for the same bus, date and departure time already exists.
func (r *ScheduleRepository) CreateTx(ctx context.Context, q Querier, s *models.Schedule) (bool, error) {
	query := `
		INSERT INTO schedules (
			bus_id, route_id, departure_time, schedule_date, price,
			total_seats, available_seats, booked_seats, reserved_seats, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', '{}', $8)
		ON CONFLICT ON CONSTRAINT schedules_bus_date_time_key DO NOTHING
		RETURNING id, created_at, updated_at`

	rows, err := q.QueryxContext(ctx, query,
		s.BusID, s.RouteID, s.DepartureTime, s.ScheduleDate, s.Price,
		s.TotalSeats, s.TotalSeats, models.ScheduleStatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create schedule: %w", Translate(err))
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return false, fmt.Errorf("failed to scan schedule: %w", err)
	}
	s.AvailableSeats = s.TotalSeats
	s.BookedSeats = models.SeatSet{}
	s.ReservedSeats = models.SeatSet{}
	s.Status = models.ScheduleStatusActive
	return true, nil
}

// GetDetail retrieves a schedule joined with its bus and route (unlocked read)
func (r *ScheduleRepository) GetDetail(ctx context.Context, id int64) (*models.ScheduleDetail, error) {
	var detail models.ScheduleDetail
	query := `SELECT ` + scheduleDetailColumns + scheduleDetailFrom + ` WHERE s.id = $1`
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, Translate(err)
	}
	return &detail, nil
}

// ListUpcoming returns active schedules dated on or after filter.From,
// ordered by date and departure time
func (r *ScheduleRepository) ListUpcoming(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	where := []string{"s.status = ?", "s.schedule_date >= ?"}
	args := []interface{}{models.ScheduleStatusActive, filter.From.String()}

	if len(filter.Dates) > 0 {
		dates := make([]string, len(filter.Dates))
		for i, d := range filter.Dates {
			dates[i] = d.String()
		}
		where = append(where, "s.schedule_date IN (?)")
		args = append(args, dates)
	}
	if filter.RouteID > 0 {
		where = append(where, "s.route_id = ?")
		args = append(args, filter.RouteID)
	}
	if filter.Source != "" {
		where = append(where, "r.source ILIKE ?")
		args = append(args, filter.Source)
	}
	if filter.Destination != "" {
		where = append(where, "r.destination ILIKE ?")
		args = append(args, filter.Destination)
	}

	query := `SELECT ` + scheduleDetailColumns + scheduleDetailFrom +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY s.schedule_date, s.departure_time, s.id`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule query: %w", err)
	}
	query = r.db.Rebind(query)

	schedules := []models.ScheduleDetail{}
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

type lockedSchedule struct {
	models.Schedule
	SeatLayout models.LayoutIndexes `db:"seat_layout"`
}

// GetSeatStateForUpdate loads a schedule's ledger and takes an exclusive row
// lock on the schedule that is held until the surrounding transaction ends.
// Every seat mutation goes through this lock.
func (r *ScheduleRepository) GetSeatStateForUpdate(ctx context.Context, q Querier, scheduleID int64) (*ledger.State, *models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + `, b.seat_layout
		FROM schedules s
		JOIN buses b ON b.id = s.bus_id
		WHERE s.id = $1
		FOR UPDATE OF s`

	var row lockedSchedule
	if err := q.GetContext(ctx, &row, query, scheduleID); err != nil {
		return nil, nil, Translate(err)
	}

	state := &ledger.State{
		ScheduleID: row.ID,
		Total:      row.TotalSeats,
		Booked:     row.BookedSeats,
		Reserved:   row.ReservedSeats,
		Available:  row.AvailableSeats,
		Valid:      models.SeatNumbersFor(row.SeatLayout, row.TotalSeats),
	}
	if err := state.Check(); err != nil {
		return nil, nil, fmt.Errorf("schedule %d: %w", scheduleID, err)
	}
	return state, &row.Schedule, nil
}

// SaveSeatState writes a ledger back to its (locked) schedule row
func (r *ScheduleRepository) SaveSeatState(ctx context.Context, q Querier, state *ledger.State) error {
	state.Recompute()
	if err := state.Check(); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE schedules
		SET booked_seats = $1, reserved_seats = $2, available_seats = $3, updated_at = NOW()
		WHERE id = $4`,
		state.Booked, state.Reserved, state.Available, state.ScheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to save seat state: %w", Translate(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// LockTx takes the schedule row lock without reading the ledger
func (r *ScheduleRepository) LockTx(ctx context.Context, q Querier, scheduleID int64) error {
	var id int64
	if err := q.GetContext(ctx, &id, `SELECT id FROM schedules WHERE id = $1 FOR UPDATE`, scheduleID); err != nil {
		return Translate(err)
	}
	return nil
}

// CountConfirmedBookingsTx counts confirmed bookings of a schedule
func (r *ScheduleRepository) CountConfirmedBookingsTx(ctx context.Context, q Querier, scheduleID int64) (int, error) {
	var n int
	err := q.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM bookings WHERE schedule_id = $1 AND booking_status = $2`,
		scheduleID, models.BookingStatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

// DeleteTx removes a schedule and its cancelled bookings
func (r *ScheduleRepository) DeleteTx(ctx context.Context, q Querier, scheduleID int64) error {
	return deleteByID(ctx, q, "schedules", scheduleID)
}

// CompletePast marks active schedules dated before the given day as completed
func (r *ScheduleRepository) CompletePast(ctx context.Context, before models.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET status = $1, updated_at = NOW()
		WHERE status = $2 AND schedule_date < $3`,
		models.ScheduleStatusCompleted, models.ScheduleStatusActive, before)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past schedules: %w", err)
	}
	return res.RowsAffected()
}

// CountUpcoming returns the number of active schedules on or after the given day
func (r *ScheduleRepository) CountUpcoming(ctx context.Context, from models.Date) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM schedules WHERE status = $1 AND schedule_date >= $2`,
		models.ScheduleStatusActive, from)
	if err != nil {
		return 0, fmt.Errorf("failed to count schedules: %w", err)
	}
	return n, nil
}
