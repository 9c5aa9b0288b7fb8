package database

import (
	"context"
	"fmt"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

const busColumns = `id, bus_number, bus_name, bus_index, bus_type, total_seats, seat_layout, created_at, updated_at`

// BusRepository handles database operations for buses
type BusRepository struct {
	db DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create inserts a new bus
func (r *BusRepository) Create(ctx context.Context, bus *models.Bus) error {
	query := `
		INSERT INTO buses (bus_number, bus_name, bus_index, bus_type, total_seats, seat_layout)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		bus.BusNumber, bus.BusName, bus.BusIndex, bus.BusType, bus.TotalSeats, bus.SeatLayout,
	).Scan(&bus.ID, &bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", Translate(err))
	}
	return nil
}

// GetByID retrieves a bus by ID
func (r *BusRepository) GetByID(ctx context.Context, id int64) (*models.Bus, error) {
	return r.get(ctx, r.db, `SELECT `+busColumns+` FROM buses WHERE id = $1`, id)
}

// GetByIDTx retrieves a bus inside a transaction
func (r *BusRepository) GetByIDTx(ctx context.Context, q Querier, id int64) (*models.Bus, error) {
	return r.get(ctx, q, `SELECT `+busColumns+` FROM buses WHERE id = $1`, id)
}

func (r *BusRepository) get(ctx context.Context, q Querier, query string, args ...interface{}) (*models.Bus, error) {
	var bus models.Bus
	if err := q.GetContext(ctx, &bus, query, args...); err != nil {
		return nil, Translate(err)
	}
	return &bus, nil
}

// List returns all buses ordered by their display index
func (r *BusRepository) List(ctx context.Context) ([]models.Bus, error) {
	buses := []models.Bus{}
	err := r.db.SelectContext(ctx, &buses, `SELECT `+busColumns+` FROM buses ORDER BY bus_index, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}
	return buses, nil
}

// Update replaces a bus's attributes. Existing schedules keep the capacity
// they copied at creation.
func (r *BusRepository) Update(ctx context.Context, bus *models.Bus) error {
	query := `
		UPDATE buses SET
			bus_number = $1, bus_name = $2, bus_index = $3, bus_type = $4,
			total_seats = $5, seat_layout = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		bus.BusNumber, bus.BusName, bus.BusIndex, bus.BusType, bus.TotalSeats, bus.SeatLayout, bus.ID,
	).Scan(&bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		return Translate(err)
	}
	return nil
}

// Delete removes a bus. Buses referenced by schedules cannot be deleted.
func (r *BusRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "buses", id)
}

// Count returns the number of buses
func (r *BusRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM buses`); err != nil {
		return 0, fmt.Errorf("failed to count buses: %w", err)
	}
	return n, nil
}

// deleteByID deletes one row from a fixed table name
func deleteByID(ctx context.Context, q Querier, table string, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
