package database

import (
	"context"
	"fmt"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

const routeColumns = `id, source, destination, distance, duration, created_at, updated_at`

// RouteRepository handles database operations for routes
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Create inserts a new route
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	query := `
		INSERT INTO routes (source, destination, distance, duration)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, route.Source, route.Destination, route.Distance, route.Duration).
		Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", Translate(err))
	}
	return nil
}

// GetByID retrieves a route by ID
func (r *RouteRepository) GetByID(ctx context.Context, id int64) (*models.Route, error) {
	var route models.Route
	if err := r.db.GetContext(ctx, &route, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id); err != nil {
		return nil, Translate(err)
	}
	return &route, nil
}

// List returns all routes
func (r *RouteRepository) List(ctx context.Context) ([]models.Route, error) {
	routes := []models.Route{}
	err := r.db.SelectContext(ctx, &routes, `SELECT `+routeColumns+` FROM routes ORDER BY source, destination`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// Update replaces a route's attributes
func (r *RouteRepository) Update(ctx context.Context, route *models.Route) error {
	query := `
		UPDATE routes SET source = $1, destination = $2, distance = $3, duration = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, route.Source, route.Destination, route.Distance, route.Duration, route.ID).
		Scan(&route.CreatedAt, &route.UpdatedAt)
	if err != nil {
		return Translate(err)
	}
	return nil
}

// Delete removes a route. Routes referenced by schedules cannot be deleted.
func (r *RouteRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "routes", id)
}

// Count returns the number of routes
func (r *RouteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM routes`); err != nil {
		return 0, fmt.Errorf("failed to count routes: %w", err)
	}
	return n, nil
}
